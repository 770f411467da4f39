// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invoicely/internal/activity"
	"github.com/jeranaias/invoicely/internal/logger"
	"github.com/jeranaias/invoicely/internal/session"
)

type fakeBus struct {
	mu    sync.Mutex
	kinds []activity.Kind
}

func (b *fakeBus) Publish(k activity.Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds = append(b.kinds, k)
}

func (b *fakeBus) published() []activity.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]activity.Kind(nil), b.kinds...)
}

type fakeSession struct {
	status session.Status
	resets int
}

func (f *fakeSession) Status() session.Status { return f.status }
func (f *fakeSession) ResetSession()          { f.resets++ }

func newTestServer(cfg Config) (*Server, *fakeBus, *fakeSession) {
	bus := &fakeBus{}
	sess := &fakeSession{status: session.Status{
		ID:              "s-1",
		Running:         true,
		Timeout:         15 * time.Minute,
		TimeUntilExpiry: 14 * time.Minute,
	}}
	return New(cfg, bus, sess, logger.Nop()), bus, sess
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// ROUTES
// =============================================================================

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(Config{Version: "1.2.3"})
	rec := do(t, s.Handler(), http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, healthResponse{Status: "ok", Version: "1.2.3"}, body)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestActivity(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantKind activity.Kind
	}{
		{"explicit kind", `{"kind":"click"}`, http.StatusAccepted, activity.Click},
		{"empty body defaults to pointerdown", "", http.StatusAccepted, activity.PointerDown},
		{"empty kind defaults to pointerdown", `{}`, http.StatusAccepted, activity.PointerDown},
		{"unknown kind", `{"kind":"blink"}`, http.StatusBadRequest, 0},
		{"malformed", `{"kind":`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, bus, _ := newTestServer(Config{})
			rec := do(t, s.Handler(), http.MethodPost, "/activity", tt.body, nil)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusAccepted {
				assert.Equal(t, []activity.Kind{tt.wantKind}, bus.published())
			} else {
				assert.Empty(t, bus.published())
			}
		})
	}
}

func TestActivity_RejectsGet(t *testing.T) {
	s, bus, _ := newTestServer(Config{})
	rec := do(t, s.Handler(), http.MethodGet, "/activity", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, bus.published())
}

func TestSession(t *testing.T) {
	s, _, _ := newTestServer(Config{})
	rec := do(t, s.Handler(), http.MethodGet, "/session", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s-1", body.ID)
	assert.True(t, body.Running)
	assert.Equal(t, (15 * time.Minute).Milliseconds(), body.TimeoutMs)
	assert.Equal(t, (14 * time.Minute).Milliseconds(), body.TimeUntilExpiryMs)
}

func TestSessionReset(t *testing.T) {
	s, _, sess := newTestServer(Config{})
	rec := do(t, s.Handler(), http.MethodPost, "/session/reset", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sess.resets)

	sess.status.Expired = true
	rec = do(t, s.Handler(), http.MethodPost, "/session/reset", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, sess.resets, "an expired session is not revived")
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestAuth(t *testing.T) {
	s, bus, _ := newTestServer(Config{Token: "s3cret"})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/activity", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = do(t, h, http.MethodPost, "/activity", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/activity", "", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, bus.published(), 1)
}

func TestAuth_HealthIsPublic(t *testing.T) {
	s, _, _ := newTestServer(Config{Token: "s3cret", Version: "1.2.3"})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/session", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/health", "", nil).Code,
		"only GET is exempt")
}

func TestValidateBearerToken(t *testing.T) {
	assert.True(t, ValidateBearerToken("abc", "abc"))
	assert.False(t, ValidateBearerToken("abd", "abc"))
	assert.False(t, ValidateBearerToken("", ""))
	assert.False(t, ValidateBearerToken("abc", ""))
}

func TestCORS(t *testing.T) {
	const origin = "https://app.invoicely.example"
	s, _, _ := newTestServer(Config{AllowedOrigin: origin, Token: "t"})
	h := s.Handler()

	t.Run("preflight from allowed origin skips auth", func(t *testing.T) {
		rec := do(t, h, http.MethodOptions, "/activity", "", map[string]string{"Origin": origin})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("other origin gets no allow header", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	s, _, _ := newTestServer(Config{RateLimit: 0.001, RateBurst: 2})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", nil).Code)
	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per client")
}

func TestRecovery(t *testing.T) {
	h := Chain(RecoveryMiddleware(logger.Nop()))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := do(t, h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"), mw("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	do(t, h, http.MethodGet, "/", "", nil)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:50000"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "127.0.0.1", GetClientIP(req))
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestStartShutdown(t *testing.T) {
	s, bus, _ := newTestServer(Config{Addr: "127.0.0.1:0"})
	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start fails")

	resp, err := http.Post("http://"+s.Addr()+"/activity", "application/json", strings.NewReader(`{"kind":"keypress"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []activity.Kind{activity.KeyPress}, bus.published())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, s.Shutdown(ctx), "shutdown is idempotent")
}

func TestStart_BindError(t *testing.T) {
	s, _, _ := newTestServer(Config{Addr: "not-an-address"})
	assert.Error(t, s.Start())
	assert.NoError(t, s.Shutdown(context.Background()))
}
