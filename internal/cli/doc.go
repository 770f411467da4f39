// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the invoicely command line.
//
// # Commands
//
//   - keep: runs the session keeper. With a terminal on stdin and stdout it
//     shows a live status panel whose key and mouse input counts as activity;
//     otherwise it runs headless and each line read from stdin counts.
//     --listen also serves the activity bridge so the web app can report
//     interactions.
//   - login, logout: manage the stored session cookies.
//   - status, history: inspect configuration and past sessions.
//   - config: show, get, set and initialise settings.
//
// # Usage
//
//	cmd, args := cli.Parse()
//	if err := cli.Run(cmd, args); err != nil {
//	    fmt.Fprintf(os.Stderr, "Error: %v\n", err)
//	    os.Exit(1)
//	}
package cli
