// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the session panel.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	Panel    lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Hint     lipgloss.Style
	Healthy  lipgloss.Style
	Warning  lipgloss.Style
	Critical lipgloss.Style
	Link     lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	return newTheme(termenv.ColorProfile(), termenv.HasDarkBackground())
}

func newTheme(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 2)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.Label = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Width(14)

	t.Value = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Healthy = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.Warning = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.Critical = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	// ACCESSIBILITY: Underline gives links a non-color cue
	t.Link = lipgloss.NewStyle().
		Foreground(Cyan).
		Underline(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BarWidth returns the progress bar width for the current terminal width.
func (t *Theme) BarWidth() int {
	switch {
	case t.Width <= 0:
		return 30
	case t.Width < 50:
		return 10
	case t.Width < 90:
		return 30
	default:
		return 50
	}
}
