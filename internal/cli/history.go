// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/invoicely/internal/telemetry"
	"github.com/jeranaias/invoicely/internal/ui/styles"
	"github.com/jeranaias/invoicely/internal/util"
)

// DefaultHistoryDays is the window `history` shows without --days.
const DefaultHistoryDays = 7

// HistoryReport is the --json payload of `history list`.
type HistoryReport struct {
	From     time.Time                  `json:"from"`
	To       time.Time                  `json:"to"`
	Sessions []*telemetry.SessionRecord `json:"sessions"`
	Summary  telemetry.Summary          `json:"summary"`
}

// HandleHistory lists or prunes stored session records.
func HandleHistory(args Args) error {
	if _, err := loadConfig(args); err != nil {
		return err
	}
	dir, err := historyDir()
	if err != nil {
		return err
	}
	h, err := telemetry.NewHistory(dir)
	if err != nil {
		return err
	}

	days := args.Days
	if days <= 0 {
		days = DefaultHistoryDays
	}
	now := time.Now()
	from := now.AddDate(0, 0, -days)

	switch args.Subcommand {
	case "", "list", "ls":
		return OutputJSON(args.JSON, CmdHistory.String(), func() (interface{}, error) {
			records, err := h.List(from, now)
			if err != nil {
				return nil, err
			}
			report := HistoryReport{From: from, To: now, Sessions: records, Summary: telemetry.Summarize(records)}
			if !args.JSON {
				lipgloss.SetColorProfile(GetColorProfile())
				renderHistory(stdout, styles.NewTheme(), report, now)
			}
			return report, nil
		})

	case "prune":
		if args.Days <= 0 {
			return fmt.Errorf("history prune requires --days N")
		}
		return OutputJSON(args.JSON, "history prune", func() (interface{}, error) {
			n, err := h.Storage().DeleteBefore(from)
			if err != nil {
				return nil, err
			}
			if !args.JSON {
				fmt.Fprintf(stdout, "Deleted %d session record(s) older than %d day(s)\n", n, days)
			}
			return map[string]int{"deleted": n}, nil
		})

	default:
		return fmt.Errorf("unknown history subcommand %q (use list or prune)", args.Subcommand)
	}
}

func renderHistory(w io.Writer, theme *styles.Theme, r HistoryReport, now time.Time) {
	fmt.Fprintln(w, theme.Title.Render(fmt.Sprintf("Sessions since %s", r.From.Local().Format("2006-01-02"))))
	if len(r.Sessions) == 0 {
		fmt.Fprintln(w, theme.Hint.Render("No sessions recorded."))
		return
	}
	fmt.Fprintln(w)

	for _, rec := range r.Sessions {
		ended := theme.Healthy.Render(endReason(rec))
		if rec.EndReason != "" && rec.EndReason != telemetry.EventStopped {
			ended = theme.Warning.Render(rec.EndReason)
		}
		line := fmt.Sprintf("%s  %8s  %2d refresh  %s",
			rec.StartTime.Local().Format("2006-01-02 15:04"),
			util.FormatCountdown(rec.Duration(now)),
			rec.Refreshes,
			ended,
		)
		if rec.Extended {
			line += theme.Hint.Render("  extended")
		}
		fmt.Fprintln(w, line)
	}

	s := r.Summary
	fmt.Fprintln(w)
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
		theme.Label.Render("Total"),
		theme.Value.Render(fmt.Sprintf("%d sessions, %s kept alive, %d refreshes (%d failed), %d extended",
			s.Sessions, util.FormatCountdown(s.TotalDuration), s.Refreshes, s.FailedRefreshes, s.Extended)),
	))
}
