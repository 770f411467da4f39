// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package status

import tea "github.com/charmbracelet/bubbletea"

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramNavigator ends the panel with the sign-in URL. It implements
// signin.Navigator.
type ProgramNavigator struct {
	Program Sender
}

// Navigate sends ExpiredMsg to the program, which then quits.
func (n ProgramNavigator) Navigate(url string) error {
	n.Program.Send(ExpiredMsg{URL: url})
	return nil
}
