// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/invoicely/internal/config"
	"github.com/jeranaias/invoicely/internal/telemetry"
	"github.com/jeranaias/invoicely/internal/ui/styles"
	"github.com/jeranaias/invoicely/internal/util"
)

// StatusReport is what `invoicely status` shows.
type StatusReport struct {
	ConfigPath      string `json:"config_path"`
	ConfigExists    bool   `json:"config_exists"`
	CredentialsPath string `json:"credentials_path"`
	SignedIn        bool   `json:"signed_in"`
	// CredentialsSavedAt is the cookie file's modification time.
	CredentialsSavedAt *time.Time `json:"credentials_saved_at,omitempty"`

	BaseURL   string `json:"base_url"`
	SignInURL string `json:"signin_url"`

	SessionTimeout   string `json:"session_timeout"`
	ExtendedTimeout  string `json:"extended_timeout"`
	RefreshThreshold string `json:"refresh_threshold"`
	CheckInterval    string `json:"check_interval"`

	Telemetry   bool                     `json:"telemetry"`
	// Bridge is the activity bridge address, empty when disabled.
	Bridge      string                   `json:"bridge,omitempty"`
	LastSession *telemetry.SessionRecord `json:"last_session,omitempty"`
}

// HandleStatus prints the configuration and stored session state.
func HandleStatus(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	path, err := configPath(args)
	if err != nil {
		return err
	}

	return OutputJSON(args.JSON, CmdStatus.String(), func() (interface{}, error) {
		report, err := buildStatusReport(cfg, path)
		if err != nil {
			return nil, err
		}
		if !args.JSON {
			lipgloss.SetColorProfile(GetColorProfile())
			renderStatus(stdout, styles.NewTheme(), report)
		}
		return report, nil
	})
}

func buildStatusReport(cfg *config.Config, cfgPath string) (StatusReport, error) {
	sc := cfg.SessionSettings()
	r := StatusReport{
		ConfigPath:       cfgPath,
		ConfigExists:     fileExists(cfgPath),
		BaseURL:          cfg.API.BaseURL,
		SessionTimeout:   sc.SessionTimeout.String(),
		ExtendedTimeout:  sc.ExtendedTimeout.String(),
		RefreshThreshold: sc.RefreshThreshold.String(),
		CheckInterval:    sc.CheckInterval.String(),
		Telemetry:        cfg.Telemetry.Enabled,
		Bridge:           bridgeAddr(cfg),
	}

	store, err := openStore(cfg)
	if err != nil {
		return r, err
	}
	r.CredentialsPath = store.Path()
	cookies, err := store.Load()
	if err != nil {
		return r, err
	}
	r.SignedIn = len(cookies) > 0
	if info, err := os.Stat(store.Path()); err == nil {
		t := info.ModTime()
		r.CredentialsSavedAt = &t
	}

	client, err := newClient(cfg, nil, nil)
	if err != nil {
		return r, err
	}
	r.SignInURL = client.SignInURL()

	rec, err := lastSession()
	if err != nil {
		return r, err
	}
	r.LastSession = rec
	return r, nil
}

// lastSession returns the most recent stored session record, or nil.
func lastSession() (*telemetry.SessionRecord, error) {
	dir, err := historyDir()
	if err != nil {
		return nil, err
	}
	h, err := telemetry.NewHistory(dir)
	if err != nil {
		return nil, err
	}
	records, err := h.List(time.Time{}, time.Now())
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[len(records)-1], nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func renderStatus(w io.Writer, theme *styles.Theme, r StatusReport) {
	row := func(label, value string) {
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render(label), theme.Value.Render(value)))
	}

	fmt.Fprintln(w, theme.Title.Render("invoicely status"))
	fmt.Fprintln(w)

	if r.SignedIn {
		signed := "yes"
		if r.CredentialsSavedAt != nil {
			signed += fmt.Sprintf(" (saved %s ago)", util.FormatCountdown(time.Since(*r.CredentialsSavedAt)))
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render("Signed in"), theme.Healthy.Render(signed)))
	} else {
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, theme.Label.Render("Signed in"), theme.Critical.Render("no")))
	}
	row("Backend", r.BaseURL)
	row("Sign-in", r.SignInURL)
	row("Credentials", r.CredentialsPath)
	if r.ConfigExists {
		row("Config", r.ConfigPath)
	} else {
		row("Config", r.ConfigPath+" (defaults)")
	}
	fmt.Fprintln(w)

	row("Timeout", fmt.Sprintf("%s (extended %s)", r.SessionTimeout, r.ExtendedTimeout))
	row("Refresh", fmt.Sprintf("%s before expiry, checked every %s", r.RefreshThreshold, r.CheckInterval))
	if r.Telemetry {
		row("Telemetry", "enabled")
	} else {
		row("Telemetry", "disabled")
	}

	if r.Bridge != "" {
		row("Bridge", r.Bridge)
	} else {
		row("Bridge", "disabled")
	}

	if rec := r.LastSession; rec != nil {
		fmt.Fprintln(w)
		row("Last session", rec.StartTime.Local().Format("2006-01-02 15:04"))
		row("  Lasted", util.FormatCountdown(rec.Duration(time.Now())))
		row("  Ended", endReason(rec))
		row("  Refreshes", fmt.Sprintf("%d (%d failed)", rec.Refreshes, rec.FailedRefreshes))
		if rec.LastError != "" {
			row("  Last error", util.TruncateRunes(rec.LastError, 60))
		}
	}

	if !r.SignedIn {
		fmt.Fprintln(w)
		fmt.Fprintln(w, theme.Hint.Render("Run 'invoicely login' to sign in."))
	}
}

func bridgeAddr(cfg *config.Config) string {
	if !cfg.Server.Enabled {
		return ""
	}
	return cfg.Server.Listen
}

func endReason(rec *telemetry.SessionRecord) string {
	if rec.EndReason == "" {
		return "still running"
	}
	return rec.EndReason
}
