// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output streams. Tests replace them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdKeep Command = iota
	CmdLogin
	CmdLogout
	CmdStatus
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdKeep:
		return "keep"
	case CmdLogin:
		return "login"
	case CmdLogout:
		return "logout"
	case CmdStatus:
		return "status"
	case CmdHistory:
		return "history"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed command-line arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool
	ConfigPath string

	// keep
	Headless  bool
	NoBrowser bool
	Listen    string

	// login
	Email         string
	PasswordStdin bool

	// history, config
	Subcommand  string
	Days        int
	ConfigKey   string
	ConfigValue string

	// Name is the unrecognized command for CmdUnknown.
	Name string

	// Raw holds the arguments after the command name.
	Raw []string
}

const usageText = `invoicely - keeps an invoicely web session alive while you work

Usage:
  invoicely [global flags] <command> [flags]

Commands:
  keep                 Run the session keeper (default)
      --headless       Never start the terminal panel
      --no-browser     Do not open the browser when the session ends
      --listen ADDR    Serve the activity bridge on ADDR (e.g. 127.0.0.1:8787)
  login                Sign in and store the session
      --email ADDR     Account email (prompted when omitted)
      --password-stdin Read the password from stdin
  logout               Remove the stored session
  status               Show configuration and stored session state
  history [list]       Show past sessions
      --days N         Only the last N days (default 7)
  history prune        Delete sessions older than --days N
  config [show]        Print the effective configuration
  config path          Print the config file path
  config get KEY       Print one setting
  config set KEY VAL   Change one setting and save
  config keys          List settings
  config init          Write the default config file
  version              Show version information
  help                 Show this help

Global flags:
  -q, --quiet          Only log errors
  -v, --verbose        Log debug output
      --json           Machine-readable output
      --config PATH    Use a specific config file

Environment:
  INVOICELY_HOME       Config directory (default ~/.invoicely)
  INVOICELY_API_URL    Backend base URL
  INVOICELY_NO_BROWSER Set to 1 to never open the browser
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Fprint(stdout, usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Fprintf(stdout, "invoicely %s\n", Version)
	fmt.Fprintf(stdout, "  commit:  %s\n", GitCommit)
	fmt.Fprintf(stdout, "  built:   %s\n", BuildDate)
	fmt.Fprintf(stdout, "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the arguments after the program name.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdKeep, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "keep", "run":
		p := NewArgParser(remaining, "headless", "no-browser")
		parsedArgs.Headless = p.BoolFlag("headless")
		parsedArgs.NoBrowser = p.BoolFlag("no-browser")
		parsedArgs.Listen = p.Flag("listen")
		return CmdKeep, parsedArgs

	case "login", "signin":
		p := NewArgParser(remaining, "password-stdin")
		parsedArgs.Email = p.Flag("email")
		if parsedArgs.Email == "" {
			parsedArgs.Email = p.Subcommand()
		}
		parsedArgs.PasswordStdin = p.BoolFlag("password-stdin")
		return CmdLogin, parsedArgs

	case "logout", "signout":
		return CmdLogout, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "history":
		p := NewArgParser(remaining, "json")
		parsedArgs.Subcommand = strings.ToLower(p.Subcommand())
		parsedArgs.Days = p.FlagIntOrDefault("days", 0)
		parsedArgs.JSON = parsedArgs.JSON || p.BoolFlag("json")
		return CmdHistory, parsedArgs

	case "config":
		p := NewArgParser(remaining, "json")
		parsedArgs.Subcommand = strings.ToLower(p.Subcommand())
		parsedArgs.ConfigKey = p.Positional(1)
		parsedArgs.ConfigValue = strings.Join(p.PositionalFrom(2), " ")
		parsedArgs.JSON = parsedArgs.JSON || p.BoolFlag("json")
		return CmdConfig, parsedArgs

	case "version", "--version", "-V":
		return CmdVersion, parsedArgs

	case "help", "--help", "-h":
		return CmdHelp, parsedArgs

	default:
		parsedArgs.Name = cmd
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts flags that apply to every command.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// HandleVersion prints version information.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse(CmdVersion.String(), map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		}).Print()
	}
	PrintVersion()
	return nil
}

// HandleHelp prints the usage text.
func HandleHelp(Args) error {
	PrintUsage()
	return nil
}

// Run dispatches cmd to its handler.
func Run(cmd Command, args Args) error {
	switch cmd {
	case CmdKeep:
		return HandleKeep(args)
	case CmdLogin:
		return HandleLogin(args)
	case CmdLogout:
		return HandleLogout(args)
	case CmdStatus:
		return HandleStatus(args)
	case CmdHistory:
		return HandleHistory(args)
	case CmdConfig:
		return HandleConfig(args)
	case CmdVersion:
		return HandleVersion(args)
	case CmdHelp:
		return HandleHelp(args)
	default:
		return fmt.Errorf("unknown command %q (run 'invoicely help')", args.Name)
	}
}
