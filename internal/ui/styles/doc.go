// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the invoicely terminal UI.

# Color System (colors.go)

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

  - Cyan - brand color and headings
  - Emerald - healthy session
  - Amber - session close to expiry, extended window
  - Rose - expired session, errors

# Theme System (theme.go)

The Theme struct carries the terminal capabilities detected through termenv
and the lipgloss styles for the session panel:

	theme := styles.NewTheme()
	panel := theme.Panel.Render(body)

# Progress Bars (progress.go)

RenderProgressBar draws an ASCII bar for the share of the session window
still remaining.
*/
package styles
