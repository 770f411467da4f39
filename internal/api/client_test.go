// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type memStore struct {
	mu      sync.Mutex
	loaded  []*http.Cookie
	saved   [][]*http.Cookie
	loadErr error
}

func (m *memStore) Load() ([]*http.Cookie, error) { return m.loaded, m.loadErr }

func (m *memStore) Save(c []*http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, c)
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	return c.WithLimiter(nil), srv
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	for _, u := range []string{"", "/api", "invoicely.example", "://bad"} {
		_, err := NewClient(u)
		assert.ErrorIs(t, err, ErrInvalidBaseURL, u)
	}
}

func TestClient_SignInURL(t *testing.T) {
	c, err := NewClient("https://app.invoicely.example")
	require.NoError(t, err)
	assert.Equal(t, "https://app.invoicely.example/sign-in", c.SignInURL())

	c.WithSignInPath("/auth/login?next=%2F")
	assert.Equal(t, "https://app.invoicely.example/auth/login?next=%2F", c.SignInURL())
}

func TestClient_RefreshToken_Success(t *testing.T) {
	var gotMethod, gotType, gotID string
	var gotCookie *http.Cookie
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultRefreshPath, r.URL.Path)
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		gotID = r.Header.Get(RequestIDHeader)
		gotCookie, _ = r.Cookie("sid")
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "renewed", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})

	store := &memStore{loaded: []*http.Cookie{{Name: "sid", Value: "initial"}}}
	_, err := c.WithCookieStore(store)
	require.NoError(t, err)

	require.NoError(t, c.RefreshToken(context.Background()))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	_, err = uuid.Parse(gotID)
	assert.NoError(t, err, "request id is a uuid")
	require.NotNil(t, gotCookie)
	assert.Equal(t, "initial", gotCookie.Value)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "renewed", store.saved[0][0].Value)
}

func TestClient_RefreshToken_StatusError(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError, http.StatusFound} {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", "/elsewhere")
			w.WriteHeader(code)
			_, _ = w.Write([]byte(" session revoked \n"))
		})
		c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

		err := c.RefreshToken(context.Background())
		var se *StatusError
		require.True(t, errors.As(err, &se), "code %d", code)
		assert.Equal(t, code, se.HTTPStatus())
		assert.Equal(t, "session revoked", se.Body)
	}
}

func TestClient_RefreshToken_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	require.NoError(t, err)
	err = c.RefreshToken(context.Background())
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestClient_RefreshToken_Timeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.RefreshToken(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Login(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultLoginPath, r.URL.Path)
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email != "ada@example.com" || req.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "fresh", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	store := &memStore{}
	_, err := c.WithCookieStore(store)
	require.NoError(t, err)

	assert.False(t, c.HasCredentials())
	assert.ErrorIs(t, c.Login(context.Background(), "", "x"), ErrMissingCredentials)

	err = c.Login(context.Background(), "ada@example.com", "wrong")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Empty(t, store.saved)

	require.NoError(t, c.Login(context.Background(), "ada@example.com", "hunter2"))
	assert.True(t, c.HasCredentials())
	require.Len(t, store.saved, 1)
}

func TestClient_WithCookieStore_LoadError(t *testing.T) {
	c, err := NewClient("https://app.invoicely.example")
	require.NoError(t, err)
	_, err = c.WithCookieStore(&memStore{loadErr: errors.New("corrupt")})
	assert.EqualError(t, err, "corrupt")
}

func TestClient_LimiterHonorsContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	c.WithLimiter(rate.NewLimiter(rate.Every(time.Hour), 1))

	require.NoError(t, c.RefreshToken(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.RefreshToken(ctx)
	assert.ErrorContains(t, err, "rate limit")
}
