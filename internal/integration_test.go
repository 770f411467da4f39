// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal holds end-to-end tests that wire the session keeper's
// packages together the way "invoicely keep" does, on a fake clock.
package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invoicely/internal/activity"
	"github.com/jeranaias/invoicely/internal/api"
	"github.com/jeranaias/invoicely/internal/clock"
	"github.com/jeranaias/invoicely/internal/credentials"
	"github.com/jeranaias/invoicely/internal/logger"
	"github.com/jeranaias/invoicely/internal/server"
	"github.com/jeranaias/invoicely/internal/session"
	"github.com/jeranaias/invoicely/internal/signin"
	"github.com/jeranaias/invoicely/internal/telemetry"
)

type harness struct {
	clk        *clock.Fake
	start      time.Time
	store      *credentials.Store
	redirector *signin.Redirector
	sched      *session.Scheduler
	bridge     http.Handler
	history    *telemetry.History
	refreshes  *atomic.Int32

	mu        sync.Mutex
	navigated []string
}

func newHarness(t *testing.T, refreshStatus int) *harness {
	t.Helper()
	h := &harness{refreshes: &atomic.Int32{}}

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.DefaultRefreshPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.refreshes.Add(1)
		if _, err := r.Cookie("sid"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(refreshStatus)
	}))
	t.Cleanup(backend.Close)

	dir := t.TempDir()
	h.store = credentials.NewStore(filepath.Join(dir, "credentials.json"))
	require.NoError(t, h.store.Save([]*http.Cookie{{Name: "sid", Value: "abc", Path: "/"}}))

	client, err := api.NewClient(backend.URL)
	require.NoError(t, err)
	client, err = client.WithLogger(logger.Nop()).WithCookieStore(h.store)
	require.NoError(t, err)
	require.True(t, client.HasCredentials())

	hist, err := telemetry.NewHistory(filepath.Join(dir, "history"))
	require.NoError(t, err)
	h.history = hist
	telemetry.SetSink(hist)
	t.Cleanup(func() { telemetry.SetSink(nil) })

	nav := signin.NavigatorFunc(func(url string) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.navigated = append(h.navigated, url)
		return nil
	})
	h.redirector = signin.NewRedirector(client.SignInURL, h.store, nav, logger.Nop())

	bus := activity.NewBus()
	h.start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	h.clk = clock.NewFake(h.start)
	h.sched, err = session.NewScheduler(session.DefaultConfig(), session.Deps{
		Refresher: client,
		Expiry:    h.redirector,
		Source:    bus,
		Clock:     h.clk,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	h.sched.Start()
	t.Cleanup(h.sched.Cleanup)

	h.bridge = server.New(server.Config{Token: "tok"}, bus, h.sched, logger.Nop()).Handler()
	return h
}

func (h *harness) post(t *testing.T, path, body string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.bridge.ServeHTTP(rec, req)
	return rec.Code
}

func (h *harness) session(t *testing.T) server.SessionResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.bridge.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp server.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestEndToEnd_ActivityExtendsThenIdleExpires(t *testing.T) {
	h := newHarness(t, http.StatusNoContent)

	// Idle well inside the base window: nothing happens.
	h.clk.Advance(20 * time.Minute)
	assert.Zero(t, h.refreshes.Load())
	assert.False(t, h.session(t).Extended)

	// Activity reported through the bridge just inside the extension window.
	h.clk.Advance(5*time.Minute + 30*time.Second)
	require.Equal(t, http.StatusAccepted, h.post(t, "/activity", `{"kind":"click"}`))
	h.clk.Advance(30 * time.Second)

	assert.Equal(t, int32(1), h.refreshes.Load(), "one refresh extends the session")
	st := h.session(t)
	assert.True(t, st.Extended)
	assert.Equal(t, (60 * time.Minute).Milliseconds(), st.TimeoutMs)
	assert.False(t, h.redirector.Expired())

	// Idle through the whole extended window.
	h.clk.Advance(61 * time.Minute)

	require.True(t, h.redirector.Expired())
	assert.ErrorIs(t, h.redirector.Reason(), session.ErrSessionExpired)
	assert.Equal(t, int32(1), h.refreshes.Load(), "no refresh without recent activity")
	assert.NoFileExists(t, h.store.Path())
	h.mu.Lock()
	assert.Len(t, h.navigated, 1)
	assert.True(t, strings.HasSuffix(h.navigated[0], api.DefaultSignInPath))
	h.mu.Unlock()

	rec, ok := h.history.Current(h.sched.ID())
	require.True(t, ok)
	assert.True(t, rec.Extended)
	assert.Equal(t, 1, rec.Refreshes)
	assert.Equal(t, "timeout", rec.EndReason)

	// History is stamped on the session clock, not the wall clock.
	assert.Equal(t, h.start, rec.StartTime)
	assert.True(t, rec.EndTime.After(h.start.Add(86*time.Minute)), "end %v", rec.EndTime)
	assert.False(t, rec.EndTime.After(h.clk.Now()), "end %v", rec.EndTime)
}

func TestEndToEnd_RejectedRefreshFailsClosed(t *testing.T) {
	h := newHarness(t, http.StatusUnauthorized)

	h.clk.Advance(25*time.Minute + 30*time.Second)
	require.Equal(t, http.StatusAccepted, h.post(t, "/activity", ""))
	h.clk.Advance(30 * time.Second)

	require.True(t, h.redirector.Expired())
	assert.ErrorIs(t, h.redirector.Reason(), session.ErrRefreshRejected)
	assert.NoFileExists(t, h.store.Path())
	assert.True(t, h.session(t).Expired)

	assert.Equal(t, http.StatusConflict, h.post(t, "/session/reset", ""), "an expired session cannot be reset")
}

func TestEndToEnd_ResetRestartsBaseWindow(t *testing.T) {
	h := newHarness(t, http.StatusNoContent)

	h.clk.Advance(29 * time.Minute)
	require.Equal(t, http.StatusOK, h.post(t, "/session/reset", ""))
	h.clk.Advance(29 * time.Minute)

	assert.False(t, h.redirector.Expired(), "reset moved the session start")
	h.clk.Advance(2 * time.Minute)
	assert.True(t, h.redirector.Expired())
}
