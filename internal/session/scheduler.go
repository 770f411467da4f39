// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/invoicely/internal/activity"
	"github.com/jeranaias/invoicely/internal/clock"
	"github.com/jeranaias/invoicely/internal/logger"
	"github.com/jeranaias/invoicely/internal/telemetry"
)

const (
	triggerExtend    = "extend"
	triggerProactive = "proactive"
)

// Refresher performs one credentialed token refresh against the backend.
type Refresher interface {
	RefreshToken(ctx context.Context) error
}

// ExpiryHandler ends the session from the user's point of view, normally by
// clearing local credentials and navigating to sign-in.
type ExpiryHandler interface {
	HandleExpiry(reason error)
}

// ExpiryFunc adapts a function to ExpiryHandler.
type ExpiryFunc func(reason error)

// HandleExpiry calls f(reason).
func (f ExpiryFunc) HandleExpiry(reason error) {
	f(reason)
}

// Deps are the collaborators of a Scheduler.
type Deps struct {
	// Refresher is required.
	Refresher Refresher

	// Expiry is required.
	Expiry ExpiryHandler

	// Source delivers interaction events. Nil means no events are observed.
	Source activity.Source

	// Clock defaults to the wall clock.
	Clock clock.Clock

	// Logger defaults to logger.Default().
	Logger logger.Logger

	// RefreshTimeout bounds each refresh request (default: 30 seconds).
	RefreshTimeout time.Duration
}

// =============================================================================
// SESSION CLOCK
// =============================================================================

// SessionClock is the in-memory elapsed-time state of one session.
type SessionClock struct {
	LastActivityAt         time.Time
	SessionStartedAt       time.Time
	HasExtended            bool
	IsActiveSinceLastCheck bool
}

// Status is a point-in-time view of a scheduler.
type Status struct {
	ID              string
	Clock           SessionClock
	Timeout         time.Duration
	TimeUntilExpiry time.Duration
	Running         bool
	Expired         bool
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Scheduler is the session activity scheduler.
//
// Interaction events and evaluation ticks arrive on different goroutines, so
// the session clock is guarded by mu. The refresh call and the expiry handler
// always run with mu released.
type Scheduler struct {
	mu sync.Mutex

	id             string
	cfg            Config
	clock          clock.Clock
	source         activity.Source
	refresher      Refresher
	expiry         ExpiryHandler
	log            logger.Logger
	refreshTimeout time.Duration

	state SessionClock

	task clock.Task
	sub  activity.Subscription

	started bool
	stopped bool
	expired bool

	// onTeardown is set by the owning Registry.
	onTeardown func(*Scheduler)
}

// NewScheduler creates a scheduler. It does nothing until Start is called.
func NewScheduler(cfg Config, deps Deps) (*Scheduler, error) {
	if deps.Refresher == nil {
		return nil, ErrNoRefresher
	}
	if deps.Expiry == nil {
		return nil, ErrNoExpiry
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.RefreshTimeout <= 0 {
		deps.RefreshTimeout = DefaultRefreshTimeout
	}

	id := uuid.NewString()
	return &Scheduler{
		id:             id,
		cfg:            cfg,
		clock:          deps.Clock,
		source:         deps.Source,
		refresher:      deps.Refresher,
		expiry:         deps.Expiry,
		log:            deps.Logger.With(logger.String("session", id)),
		refreshTimeout: deps.RefreshTimeout,
	}, nil
}

// ID returns the scheduler instance ID.
func (s *Scheduler) ID() string {
	return s.id
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Start subscribes to interaction events and starts the evaluation task.
// Calling Start again, or after teardown, does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	now := s.clock.Now()
	s.state = SessionClock{LastActivityAt: now, SessionStartedAt: now}

	if s.source != nil {
		s.sub = s.source.Subscribe(activity.AllKinds(), s.onActivity)
	}
	s.task = s.clock.Every(s.cfg.CheckInterval, s.Evaluate)
	s.mu.Unlock()

	s.log.Info("session keeper started",
		logger.Duration("session_timeout", s.cfg.SessionTimeout),
		logger.Duration("extended_timeout", s.cfg.ExtendedTimeout),
		logger.Duration("refresh_threshold", s.cfg.RefreshThreshold),
		logger.Duration("check_interval", s.cfg.CheckInterval),
	)
	telemetry.RecordLifecycle(context.Background(), s.clock.Now(), s.id, telemetry.EventStarted)
}

func (s *Scheduler) onActivity(activity.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.state.LastActivityAt = s.clock.Now()
	s.state.IsActiveSinceLastCheck = true
}

// Evaluate runs one evaluation cycle. The repeating task calls it every
// CheckInterval; it is exported for callers that drive the scheduler by hand.
func (s *Scheduler) Evaluate() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	sinceLastActivity := now.Sub(s.state.LastActivityAt)
	sinceSessionStart := now.Sub(s.state.SessionStartedAt)

	trigger := ""
	if s.state.IsActiveSinceLastCheck && !s.state.HasExtended &&
		sinceSessionStart > s.cfg.SessionTimeout-s.cfg.RefreshThreshold {
		trigger = triggerExtend
		s.state.HasExtended = true
		s.state.SessionStartedAt = now
	} else if sinceLastActivity < s.cfg.RefreshThreshold {
		untilExpiry := s.cfg.timeoutFor(s.state.HasExtended) - sinceSessionStart
		if untilExpiry > 0 && untilExpiry <= s.cfg.RefreshThreshold {
			trigger = triggerProactive
		}
	}
	s.state.IsActiveSinceLastCheck = false
	s.mu.Unlock()

	if trigger != "" {
		if trigger == triggerExtend {
			s.log.Info("session extended", logger.Duration("extended_timeout", s.cfg.ExtendedTimeout))
			telemetry.RecordExtension(context.Background(), now, s.id)
		}
		if err := s.refresh(trigger, now); err != nil {
			s.expire(err, now)
			return
		}
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	// Measured against the start observed before any extension this cycle,
	// so a tick that lands past the extended timeout still expires.
	timeout := s.cfg.timeoutFor(s.state.HasExtended)
	s.mu.Unlock()

	if sinceSessionStart > timeout {
		s.expire(ErrSessionExpired, now)
	}
}

// refresh issues one token refresh. Any failure is returned as *RefreshError.
func (s *Scheduler) refresh(trigger string, now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()

	err := s.refresher.RefreshToken(ctx)
	telemetry.RecordRefresh(ctx, now, s.id, trigger, err)
	if err != nil {
		rerr := newRefreshError(err)
		s.log.Warn("token refresh failed", logger.String("trigger", trigger), logger.Err(rerr))
		return rerr
	}
	s.log.Debug("token refreshed", logger.String("trigger", trigger))
	return nil
}

// expire tears the scheduler down and hands reason to the expiry handler.
// The handler runs at most once per scheduler.
func (s *Scheduler) expire(reason error, now time.Time) {
	s.mu.Lock()
	if s.expired {
		s.mu.Unlock()
		return
	}
	s.expired = true
	s.mu.Unlock()

	s.teardown()

	kind := expiryKind(reason)
	s.log.Warn("session expired", logger.String("reason", kind), logger.Err(reason))
	telemetry.RecordExpiry(context.Background(), now, s.id, kind, reason)

	s.expiry.HandleExpiry(reason)
}

// Cleanup stops the evaluation task and removes the activity listener.
// It is safe to call more than once.
func (s *Scheduler) Cleanup() {
	s.teardown()
}

func (s *Scheduler) teardown() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	task, sub := s.task, s.sub
	s.task, s.sub = nil, nil
	onTeardown := s.onTeardown
	s.mu.Unlock()

	if task != nil {
		task.Stop()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	if onTeardown != nil {
		onTeardown(s)
	}

	s.log.Info("session keeper stopped")
	telemetry.RecordLifecycle(context.Background(), s.clock.Now(), s.id, telemetry.EventStopped)
}

// ResetSession restarts the session clock and clears the extension without
// touching the listener or the evaluation task. Use it when a fresh
// credential was issued out of band, e.g. after a manual sign-in.
func (s *Scheduler) ResetSession() {
	s.mu.Lock()
	now := s.clock.Now()
	s.state.SessionStartedAt = now
	s.state.LastActivityAt = now
	s.state.HasExtended = false
	s.mu.Unlock()

	s.log.Info("session clock reset")
	telemetry.RecordReset(context.Background(), now, s.id)
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	timeout := s.cfg.timeoutFor(s.state.HasExtended)
	remaining := timeout - s.clock.Now().Sub(s.state.SessionStartedAt)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		ID:              s.id,
		Clock:           s.state,
		Timeout:         timeout,
		TimeUntilExpiry: remaining,
		Running:         s.started && !s.stopped,
		Expired:         s.expired,
	}
}
