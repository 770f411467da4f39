// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the invoicing backend's
// authentication endpoints.
//
// Credentials are cookie based. The client owns a cookie jar seeded from,
// and persisted to, a CookieStore so the session survives restarts.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/jeranaias/invoicely/internal/logger"
)

// Default endpoint paths and limits.
const (
	DefaultRefreshPath = "/api/auth/refresh"
	DefaultLoginPath   = "/api/auth/login"
	DefaultSignInPath  = "/sign-in"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit caps outbound calls per second.
	DefaultRateLimit = 2
	DefaultRateBurst = 4

	// MaxResponseSize caps how much of an error body is read.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 64 * 1024

	// RequestIDHeader carries a per-request correlation ID.
	RequestIDHeader = "X-Request-ID"
)

var (
	// ErrInvalidBaseURL indicates the backend URL is missing or relative.
	ErrInvalidBaseURL = errors.New("base URL must be absolute")

	// ErrMissingCredentials indicates Login was called without email or password.
	ErrMissingCredentials = errors.New("email and password are required")
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// CookieStore persists session cookies between runs.
type CookieStore interface {
	Load() ([]*http.Cookie, error)
	Save(cookies []*http.Cookie) error
}

// Client calls the invoicing backend.
type Client struct {
	baseURL     *url.URL
	refreshPath string
	loginPath   string
	signInPath  string

	httpClient *http.Client
	jar        http.CookieJar
	limiter    *rate.Limiter
	store      CookieStore
	log        logger.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL:     u,
		refreshPath: DefaultRefreshPath,
		loginPath:   DefaultLoginPath,
		signInPath:  DefaultSignInPath,
		httpClient:  &http.Client{Jar: jar, Timeout: DefaultTimeout},
		jar:         jar,
		limiter:     rate.NewLimiter(DefaultRateLimit, DefaultRateBurst),
		log:         logger.Default(),
	}, nil
}

// WithRefreshPath sets the token refresh endpoint path.
func (c *Client) WithRefreshPath(p string) *Client {
	if p != "" {
		c.refreshPath = p
	}
	return c
}

// WithLoginPath sets the login endpoint path.
func (c *Client) WithLoginPath(p string) *Client {
	if p != "" {
		c.loginPath = p
	}
	return c
}

// WithSignInPath sets the sign-in entry path.
func (c *Client) WithSignInPath(p string) *Client {
	if p != "" {
		c.signInPath = p
	}
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// WithLimiter replaces the outbound rate limiter. nil disables limiting.
func (c *Client) WithLimiter(l *rate.Limiter) *Client {
	c.limiter = l
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l logger.Logger) *Client {
	if l != nil {
		c.log = l
	}
	return c
}

// WithCookieStore seeds the jar from store and persists cookies to it after
// each successful call.
func (c *Client) WithCookieStore(store CookieStore) (*Client, error) {
	c.store = store
	if store == nil {
		return c, nil
	}
	cookies, err := store.Load()
	if err != nil {
		return c, err
	}
	c.SetCookies(cookies)
	return c, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SignInURL returns the absolute sign-in entry URL.
func (c *Client) SignInURL() string {
	return c.resolve(c.signInPath)
}

// SetCookies replaces the session cookies held for the backend.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	c.jar.SetCookies(c.baseURL, cookies)
}

// Cookies returns the cookies the jar would send to the backend.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

// HasCredentials reports whether any session cookie is held.
func (c *Client) HasCredentials() bool {
	return len(c.Cookies()) > 0
}

// RefreshToken asks the backend to renew the session credential.
// Any 2xx status is success; other statuses return *StatusError.
func (c *Client) RefreshToken(ctx context.Context) error {
	return c.post(ctx, c.refreshPath, nil)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in with email and password. The issued session cookie is
// captured by the jar and persisted.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingCredentials
	}
	return c.post(ctx, c.loginPath, loginRequest{Email: email, Password: password})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	target := c.resolve(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	log := c.log.With(logger.String("request_id", requestID), logger.String("path", path))
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed", logger.Err(err))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("response received",
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return &StatusError{
			Method:     http.MethodPost,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(data)),
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))

	c.persist(log)
	return nil
}

func (c *Client) persist(log logger.Logger) {
	if c.store == nil {
		return
	}
	cookies := c.Cookies()
	if len(cookies) == 0 {
		return
	}
	if err := c.store.Save(cookies); err != nil {
		log.Warn("failed to persist session cookies", logger.Err(err))
	}
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	return c.baseURL.ResolveReference(ref).String()
}
