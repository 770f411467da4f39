// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package status implements the Bubble Tea session panel shown by
// "invoicely keep". Keyboard and mouse input in the panel counts as user
// activity for the session scheduler.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/invoicely/internal/session"
	"github.com/jeranaias/invoicely/internal/ui/styles"
	"github.com/jeranaias/invoicely/internal/util"
)

// DefaultRefreshRate is how often the panel re-reads the scheduler.
const DefaultRefreshRate = time.Second

// Publisher receives terminal input as activity.
type Publisher interface {
	PublishTeaMsg(msg tea.Msg) bool
}

// Source provides session snapshots.
type Source interface {
	Status() session.Status
}

// TickMsg triggers a status refresh.
type TickMsg time.Time

// ExpiredMsg reports that the session ended and the user must sign in at URL.
type ExpiredMsg struct {
	URL string
}

// Model is the session panel.
type Model struct {
	theme     *styles.Theme
	publisher Publisher
	source    Source
	cfg       session.Config
	rate      time.Duration
	keys      KeyMap
	help      help.Model

	status     session.Status
	expired    bool
	signInURL  string
	quitting   bool
	inputCount int
}

// New creates the panel model.
func New(theme *styles.Theme, publisher Publisher, source Source, cfg session.Config) Model {
	m := Model{
		theme:     theme,
		publisher: publisher,
		source:    source,
		cfg:       cfg,
		rate:      DefaultRefreshRate,
		keys:      DefaultKeyMap(),
		help:      help.New(),
	}
	if source != nil {
		m.status = source.Status()
	}
	return m
}

// WithRefreshRate overrides the panel refresh rate.
func (m Model) WithRefreshRate(d time.Duration) Model {
	if d > 0 {
		m.rate = d
	}
	return m
}

// Expired reports whether the session ended while the panel was open.
func (m Model) Expired() bool { return m.expired }

// SignInURL returns the URL carried by ExpiredMsg, if any.
func (m Model) SignInURL() string { return m.signInURL }

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.rate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.recordInput(msg)
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.MouseMsg:
		m.recordInput(msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.theme.SetSize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		if m.source != nil {
			m.status = m.source.Status()
		}
		if m.expired {
			return m, nil
		}
		return m, m.tick()

	case ExpiredMsg:
		m.expired = true
		m.signInURL = msg.URL
		if m.source != nil {
			m.status = m.source.Status()
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) recordInput(msg tea.Msg) {
	if m.publisher != nil && m.publisher.PublishTeaMsg(msg) {
		m.inputCount++
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the panel.
func (m Model) View() string {
	if m.quitting && !m.expired {
		return ""
	}

	t := m.theme
	var b strings.Builder
	b.WriteString(t.Title.Render("invoicely session"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(t.Label.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	st := m.status
	row("State", m.stateBadge())
	row("Window", t.Value.Render(m.windowLabel()))
	row("Expires in", t.Value.Render(util.FormatCountdown(st.TimeUntilExpiry)))

	pct := 0.0
	if st.Timeout > 0 {
		pct = float64(st.TimeUntilExpiry) / float64(st.Timeout) * 100
	}
	row("", t.Value.Render(styles.RenderProgressBar(t.BarWidth(), pct)))

	if !st.Clock.LastActivityAt.IsZero() {
		row("Last activity", t.Value.Render(st.Clock.LastActivityAt.Format("15:04:05")))
	}
	row("Inputs", t.Value.Render(fmt.Sprintf("%d", m.inputCount)))

	b.WriteString("\n")
	if m.expired {
		url := m.signInURL
		if w := t.Width - 8; w > 10 {
			url = runewidth.Truncate(url, w, "...")
		}
		b.WriteString(t.Critical.Render("Session ended. Sign in again at:"))
		b.WriteString("\n")
		b.WriteString(t.Link.Render(url))
	} else {
		b.WriteString(t.Hint.Render("Any key or mouse input keeps the session alive."))
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	return t.Panel.Render(b.String()) + "\n"
}

func (m Model) stateBadge() string {
	t := m.theme
	st := m.status
	switch {
	case m.expired || st.Expired:
		return t.Critical.Render("expired")
	case !st.Running:
		return t.Warning.Render("stopped")
	case st.TimeUntilExpiry <= m.cfg.RefreshThreshold:
		return t.Warning.Render("refreshing soon")
	default:
		return t.Healthy.Render("active")
	}
}

func (m Model) windowLabel() string {
	if m.status.Clock.HasExtended {
		return fmt.Sprintf("extended (%s)", m.cfg.ExtendedTimeout)
	}
	return fmt.Sprintf("base (%s)", m.cfg.SessionTimeout)
}
