// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package activity

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FromTeaMsg maps a Bubble Tea input message to an interaction kind.
// Messages that are not user input report false.
func FromTeaMsg(msg tea.Msg) (Kind, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return KeyPress, true
	case tea.MouseMsg:
		return fromMouse(msg)
	default:
		return 0, false
	}
}

func fromMouse(msg tea.MouseMsg) (Kind, bool) {
	switch msg.Type {
	case tea.MouseWheelUp, tea.MouseWheelDown:
		return Scroll, true
	case tea.MouseMotion:
		return PointerMove, true
	case tea.MouseRelease:
		return Click, true
	default:
		return PointerDown, true
	}
}

// PublishTeaMsg publishes msg to the bus when it is user input.
func (b *Bus) PublishTeaMsg(msg tea.Msg) bool {
	kind, ok := FromTeaMsg(msg)
	if ok {
		b.Publish(kind)
	}
	return ok
}
