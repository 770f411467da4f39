// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/invoicely/internal/activity"
	"github.com/jeranaias/invoicely/internal/logger"
	"github.com/jeranaias/invoicely/internal/session"
)

// DefaultAddr is the loopback address the bridge listens on.
const DefaultAddr = "127.0.0.1:8787"

// maxBodyBytes caps POST bodies; activity reports are tiny.
const maxBodyBytes = 1 << 10

// Publisher receives activity reported by the web app.
type Publisher interface {
	Publish(kind activity.Kind)
}

// SessionView is the part of the scheduler the bridge exposes.
type SessionView interface {
	Status() session.Status
	ResetSession()
}

// Config configures a Server.
type Config struct {
	Addr          string
	Token         string
	AllowedOrigin string
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64
	RateBurst int
	Version   string
}

// Server is the loopback activity bridge.
type Server struct {
	cfg    Config
	bus    Publisher
	sess   SessionView
	log    logger.Logger
	router *http.ServeMux

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New builds a Server. Routes are registered immediately so Handler can be
// used without Start.
func New(cfg Config, bus Publisher, sess SessionView, log logger.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		cfg:    cfg,
		bus:    bus,
		sess:   sess,
		log:    log,
		router: http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /session", s.handleSession)
	s.router.HandleFunc("POST /session/reset", s.handleReset)
	s.router.HandleFunc("POST /activity", s.handleActivity)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var limiter *RateLimiter
	if s.cfg.RateLimit > 0 {
		limiter = NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst)
	}
	return Chain(
		RecoveryMiddleware(s.log),
		LoggingMiddleware(s.log),
		SecurityHeadersMiddleware(),
		CORSMiddleware(s.cfg.AllowedOrigin),
		RateLimitMiddleware(limiter),
		AuthMiddleware(s.cfg.Token),
	)(s.router)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.cfg.Version})
}

// SessionResponse is the JSON form of a scheduler status.
type SessionResponse struct {
	ID                string    `json:"id"`
	Running           bool      `json:"running"`
	Expired           bool      `json:"expired"`
	Extended          bool      `json:"extended"`
	ActiveSinceCheck  bool      `json:"active_since_check"`
	TimeoutMs         int64     `json:"timeout_ms"`
	TimeUntilExpiryMs int64     `json:"time_until_expiry_ms"`
	SessionStartedAt  time.Time `json:"session_started_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
}

// NewSessionResponse converts a scheduler status.
func NewSessionResponse(st session.Status) SessionResponse {
	return SessionResponse{
		ID:                st.ID,
		Running:           st.Running,
		Expired:           st.Expired,
		Extended:          st.Clock.HasExtended,
		ActiveSinceCheck:  st.Clock.IsActiveSinceLastCheck,
		TimeoutMs:         st.Timeout.Milliseconds(),
		TimeUntilExpiryMs: st.TimeUntilExpiry.Milliseconds(),
		SessionStartedAt:  st.Clock.SessionStartedAt,
		LastActivityAt:    st.Clock.LastActivityAt,
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewSessionResponse(s.sess.Status()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if s.sess.Status().Expired {
		writeError(w, http.StatusConflict, "session already expired")
		return
	}
	s.sess.ResetSession()
	writeJSON(w, http.StatusOK, NewSessionResponse(s.sess.Status()))
}

// ActivityRequest is the body of POST /activity. An empty body reports a
// pointerdown.
type ActivityRequest struct {
	Kind string `json:"kind"`
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	kind := activity.PointerDown
	if req.Kind != "" {
		k, ok := activity.ParseKind(req.Kind)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown activity kind "+req.Kind)
			return
		}
		kind = k
	}

	s.bus.Publish(kind)
	writeJSON(w, http.StatusAccepted, map[string]string{"kind": kind.String()})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start binds the listen address and serves in the background. Bind errors
// are returned; later serve errors are logged.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("activity bridge stopped", logger.Err(err))
		}
	}()
	s.log.Info("activity bridge listening",
		logger.String("addr", ln.Addr().String()),
		logger.Bool("auth", s.cfg.Token != ""),
	)
	return nil
}

// Addr is the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Shutdown gracefully stops the server. It is a no-op if never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.log.Debug("activity bridge shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Code = status
	writeJSON(w, status, body)
}
