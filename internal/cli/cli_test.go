// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"prune", "--days", "30"},
			wantSub: "prune",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("days") != "30" {
					t.Errorf("Flag(days) = %q, want %q", p.Flag("days"), "30")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"login", "--email=ada@example.com"},
			wantSub: "login",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("email") != "ada@example.com" {
					t.Errorf("Flag(email) = %q, want %q", p.Flag("email"), "ada@example.com")
				}
			},
		},
		{
			name:    "boolean flag at end",
			args:    []string{"list", "--json"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "declared boolean does not swallow positional",
			args:    []string{"--json", "list"},
			bools:   []string{"json"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
				if p.Flag("json") != "" {
					t.Errorf("Flag(json) = %q, want empty", p.Flag("json"))
				}
			},
		},
		{
			name:    "undeclared flag takes next value",
			args:    []string{"--json", "list"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("json") != "list" {
					t.Errorf("Flag(json) = %q, want %q", p.Flag("json"), "list")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"set", "--", "ui.open_browser", "-1"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				if got := strings.Join(p.PositionalFrom(1), " "); got != "ui.open_browser -1" {
					t.Errorf("PositionalFrom(1) = %q", got)
				}
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"set", "api.base_url", "https://x.example"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 3 {
					t.Errorf("PositionalCount() = %d, want 3", p.PositionalCount())
				}
				if p.Positional(2) != "https://x.example" {
					t.Errorf("Positional(2) = %q", p.Positional(2))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args, tt.bools...)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		defaultVal int
		want       int
	}{
		{"flag present", []string{"cmd", "--days", "10"}, 5, 10},
		{"flag missing uses default", []string{"cmd"}, 5, 5},
		{"invalid int uses default", []string{"cmd", "--days", "abc"}, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewArgParser(tt.args).FlagIntOrDefault("days", tt.defaultVal)
			if got != tt.want {
				t.Errorf("FlagIntOrDefault(days, %d) = %d, want %d", tt.defaultVal, got, tt.want)
			}
		})
	}
}

func TestArgParser_HasFlag(t *testing.T) {
	parser := NewArgParser([]string{"cmd", "--verbose", "--days", "50"})

	if !parser.HasFlag("verbose") {
		t.Error("HasFlag(verbose) should be true")
	}
	if !parser.HasFlag("--days") {
		t.Error("HasFlag(--days) should be true")
	}
	if parser.HasFlag("nonexistent") {
		t.Error("HasFlag(nonexistent) should be false")
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	parser := NewArgParser([]string{})
	if parser.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", parser.Subcommand())
	}
	if parser.PositionalCount() != 0 {
		t.Errorf("PositionalCount() = %d, want 0", parser.PositionalCount())
	}
	if len(parser.PositionalFrom(3)) != 0 {
		t.Error("PositionalFrom out of range should be empty")
	}
}

func TestArgParser_FlagOrDefault(t *testing.T) {
	parser := NewArgParser([]string{"cmd", "--present", "value"})

	if parser.FlagOrDefault("present", "default") != "value" {
		t.Error("FlagOrDefault should return actual value when present")
	}
	if parser.FlagOrDefault("missing", "default") != "default" {
		t.Error("FlagOrDefault should return default when missing")
	}
}

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"7", 7, false},
		{"", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
		{"seven", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntWithValidation(tt.input, "days")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIntWithValidation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseIntWithValidation(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// =============================================================================
// COMMAND PARSING (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantCommand Command
		validate    func(*testing.T, Args)
	}{
		{
			name:        "no command keeps",
			args:        nil,
			wantCommand: CmdKeep,
		},
		{
			name:        "keep headless",
			args:        []string{"keep", "--headless", "--no-browser", "--listen", "127.0.0.1:9000"},
			wantCommand: CmdKeep,
			validate: func(t *testing.T, a Args) {
				if !a.Headless || !a.NoBrowser {
					t.Errorf("Headless=%v NoBrowser=%v, want both true", a.Headless, a.NoBrowser)
				}
				if a.Listen != "127.0.0.1:9000" {
					t.Errorf("Listen = %q", a.Listen)
				}
			},
		},
		{
			name:        "global flags before command",
			args:        []string{"-v", "--config", "/tmp/x.toml", "status"},
			wantCommand: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if !a.Verbose {
					t.Error("Verbose should be true")
				}
				if a.ConfigPath != "/tmp/x.toml" {
					t.Errorf("ConfigPath = %q", a.ConfigPath)
				}
			},
		},
		{
			name:        "config equals form",
			args:        []string{"status", "--config=/etc/invoicely.toml", "-q"},
			wantCommand: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if a.ConfigPath != "/etc/invoicely.toml" || !a.Quiet {
					t.Errorf("ConfigPath = %q Quiet = %v", a.ConfigPath, a.Quiet)
				}
			},
		},
		{
			name:        "login with email flag",
			args:        []string{"login", "--email", "ada@example.com", "--password-stdin"},
			wantCommand: CmdLogin,
			validate: func(t *testing.T, a Args) {
				if a.Email != "ada@example.com" || !a.PasswordStdin {
					t.Errorf("Email = %q PasswordStdin = %v", a.Email, a.PasswordStdin)
				}
			},
		},
		{
			name:        "login with positional email",
			args:        []string{"login", "ada@example.com"},
			wantCommand: CmdLogin,
			validate: func(t *testing.T, a Args) {
				if a.Email != "ada@example.com" {
					t.Errorf("Email = %q", a.Email)
				}
			},
		},
		{
			name:        "logout",
			args:        []string{"logout"},
			wantCommand: CmdLogout,
		},
		{
			name:        "history prune",
			args:        []string{"history", "prune", "--days", "30"},
			wantCommand: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "prune" || a.Days != 30 {
					t.Errorf("Subcommand = %q Days = %d", a.Subcommand, a.Days)
				}
			},
		},
		{
			name:        "history json after command",
			args:        []string{"history", "--json"},
			wantCommand: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if !a.JSON {
					t.Error("JSON should be true")
				}
			},
		},
		{
			name:        "config set joins value",
			args:        []string{"config", "set", "api.base_url", "https://x.example"},
			wantCommand: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" || a.ConfigKey != "api.base_url" || a.ConfigValue != "https://x.example" {
					t.Errorf("got %q %q %q", a.Subcommand, a.ConfigKey, a.ConfigValue)
				}
			},
		},
		{
			name:        "version flag",
			args:        []string{"--version"},
			wantCommand: CmdVersion,
		},
		{
			name:        "help",
			args:        []string{"-h"},
			wantCommand: CmdHelp,
		},
		{
			name:        "unknown",
			args:        []string{"frobnicate"},
			wantCommand: CmdUnknown,
			validate: func(t *testing.T, a Args) {
				if a.Name != "frobnicate" {
					t.Errorf("Name = %q", a.Name)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.args)
			if cmd != tt.wantCommand {
				t.Errorf("command = %v, want %v", cmd, tt.wantCommand)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestCommand_String(t *testing.T) {
	for cmd := CmdKeep; cmd < CmdUnknown; cmd++ {
		if cmd.String() == "unknown" {
			t.Errorf("command %d has no name", cmd)
		}
	}
	if CmdUnknown.String() != "unknown" {
		t.Errorf("CmdUnknown.String() = %q", CmdUnknown.String())
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkArgParser_Complex(b *testing.B) {
	args := []string{"history", "prune", "--days", "30", "--json", "-q", "extra"}
	for i := 0; i < b.N; i++ {
		NewArgParser(args, "json")
	}
}
