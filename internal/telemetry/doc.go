// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records session keeper events.
//
// Every event goes to three places:
//   - an OpenTelemetry counter (invoicely.session.*.total)
//   - an OpenTelemetry log record
//   - the installed Sink, normally a History
//
// # Key Types
//
//   - Providers: SDK meter and logger providers exporting over OTLP/HTTP
//   - History: per-session summaries persisted under ~/.invoicely/history
//   - SessionRecord: one scheduler run, from start to stop or expiry
//
// # Usage
//
//	providers, err := telemetry.Setup(ctx, telemetry.ProviderConfig{ServiceVersion: version})
//	defer providers.Shutdown(ctx)
//
//	history, err := telemetry.NewHistory("")
//	telemetry.SetSink(history)
package telemetry
