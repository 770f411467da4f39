// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is the loopback activity bridge.
//
// The web app cannot reach the terminal's input devices, so a page script
// reports user interactions here and the bridge forwards them to the
// activity bus that drives the session scheduler.
//
// # Endpoints
//
//   - GET  /health         - liveness and version
//   - GET  /session        - current scheduler status
//   - POST /session/reset  - restart the session clock
//   - POST /activity       - report one interaction, body {"kind":"click"}
//
// # Middleware
//
// Requests pass through panic recovery, request logging, security headers,
// CORS for the web app's origin, per-client rate limiting and an optional
// bearer token check, in that order.
package server
