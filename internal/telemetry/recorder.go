// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Recording helpers for session keeper events. Each function emits an OTel
// log record, increments a metric counter against the global providers and
// forwards the event to the installed Sink. With no providers installed the
// OTel side is a no-op.
//
// at is the event time on the caller's clock; a zero at falls back to the
// wall clock.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName  = "github.com/jeranaias/invoicely"
	loggerName = "invoicely"
)

type recorderInstruments struct {
	refreshTotal   metric.Int64Counter
	extensionTotal metric.Int64Counter
	expiryTotal    metric.Int64Counter
	lifecycleTotal metric.Int64Counter
	resetTotal     metric.Int64Counter
}

var (
	instMu   sync.Mutex
	instOnce sync.Once
	inst     recorderInstruments
)

// instruments registers the counters against the current global
// MeterProvider on first use and returns them.
func instruments() recorderInstruments {
	instMu.Lock()
	defer instMu.Unlock()
	instOnce.Do(func() {
		m := otel.GetMeterProvider().Meter(meterName)

		inst.refreshTotal, _ = m.Int64Counter("invoicely.session.refreshes.total",
			metric.WithDescription("Total token refresh attempts"),
		)
		inst.extensionTotal, _ = m.Int64Counter("invoicely.session.extensions.total",
			metric.WithDescription("Total sessions upgraded to the extended timeout"),
		)
		inst.expiryTotal, _ = m.Int64Counter("invoicely.session.expiries.total",
			metric.WithDescription("Total forced session expiries"),
		)
		inst.lifecycleTotal, _ = m.Int64Counter("invoicely.session.lifecycle.total",
			metric.WithDescription("Total scheduler lifecycle events"),
		)
		inst.resetTotal, _ = m.Int64Counter("invoicely.session.resets.total",
			metric.WithDescription("Total explicit session clock resets"),
		)
	})
	return inst
}

// =============================================================================
// SINK
// =============================================================================

// Event names delivered to a Sink.
const (
	EventStarted = "started"
	EventStopped = "stopped"
	EventRefresh = "refresh"
	EventExtend  = "extend"
	EventReset   = "reset"
	EventExpire  = "expire"
)

// Event is a session keeper event as seen by a Sink.
type Event struct {
	SessionID string
	Name      string
	// Detail is the refresh trigger or the expiry kind.
	Detail string
	Err    error
	At     time.Time
}

// Sink receives every recorded event. Observe must not block.
type Sink interface {
	Observe(e Event)
}

var (
	sinkMu sync.RWMutex
	sink   Sink
)

// SetSink installs s as the event sink. nil removes it.
func SetSink(s Sink) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = s
}

func notify(e Event) {
	sinkMu.RLock()
	s := sink
	sinkMu.RUnlock()
	if s == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.Observe(e)
}

// resetInstrumentsForProvider forces the counters to be recreated against
// the current global MeterProvider on next use.
func resetInstrumentsForProvider() {
	instMu.Lock()
	defer instMu.Unlock()
	instOnce = sync.Once{}
}

// statusStr returns "ok" or "error" depending on whether err is nil.
func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func emit(ctx context.Context, at time.Time, body string, sev otellog.Severity, attrs ...otellog.KeyValue) {
	logger := global.GetLoggerProvider().Logger(loggerName)
	var r otellog.Record
	if !at.IsZero() {
		r.SetTimestamp(at)
	}
	r.SetBody(otellog.StringValue(body))
	r.SetSeverity(sev)
	r.AddAttributes(attrs...)
	logger.Emit(ctx, r)
}

func errKV(err error) otellog.KeyValue {
	if err != nil {
		return otellog.String("error", err.Error())
	}
	return otellog.String("error", "")
}

func severity(err error) otellog.Severity {
	if err != nil {
		return otellog.SeverityError
	}
	return otellog.SeverityInfo
}

// RecordRefresh records a token refresh attempt.
// trigger is "extend" or "proactive".
func RecordRefresh(ctx context.Context, at time.Time, sessionID, trigger string, err error) {
	in := instruments()
	status := statusStr(err)
	in.refreshTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("trigger", trigger),
			attribute.String("status", status),
		),
	)
	emit(ctx, at, "session.refresh", severity(err),
		otellog.String("session", sessionID),
		otellog.String("trigger", trigger),
		otellog.String("status", status),
		errKV(err),
	)
	notify(Event{SessionID: sessionID, At: at, Name: EventRefresh, Detail: trigger, Err: err})
}

// RecordExtension records the one-time upgrade to the extended timeout.
func RecordExtension(ctx context.Context, at time.Time, sessionID string) {
	in := instruments()
	in.extensionTotal.Add(ctx, 1)
	emit(ctx, at, "session.extend", otellog.SeverityInfo,
		otellog.String("session", sessionID),
	)
	notify(Event{SessionID: sessionID, At: at, Name: EventExtend})
}

// RecordExpiry records a forced expiry. kind is "timeout",
// "refresh_rejected" or "refresh_transport".
func RecordExpiry(ctx context.Context, at time.Time, sessionID, kind string, reason error) {
	in := instruments()
	in.expiryTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", kind)),
	)
	emit(ctx, at, "session.expire", otellog.SeverityWarn,
		otellog.String("session", sessionID),
		otellog.String("reason", kind),
		errKV(reason),
	)
	notify(Event{SessionID: sessionID, At: at, Name: EventExpire, Detail: kind, Err: reason})
}

// RecordReset records an explicit session clock reset.
func RecordReset(ctx context.Context, at time.Time, sessionID string) {
	in := instruments()
	in.resetTotal.Add(ctx, 1)
	emit(ctx, at, "session.reset", otellog.SeverityInfo,
		otellog.String("session", sessionID),
	)
	notify(Event{SessionID: sessionID, At: at, Name: EventReset})
}

// RecordLifecycle records a scheduler lifecycle event.
// event is EventStarted or EventStopped.
func RecordLifecycle(ctx context.Context, at time.Time, sessionID, event string) {
	in := instruments()
	in.lifecycleTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event", event)),
	)
	emit(ctx, at, "session.lifecycle", otellog.SeverityInfo,
		otellog.String("session", sessionID),
		otellog.String("event", event),
	)
	notify(Event{SessionID: sessionID, At: at, Name: event})
}
