// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
)

// =============================================================================
// REGISTRY (SINGLE LIVE SCHEDULER)
// =============================================================================

// Registry owns at most one live Scheduler. A scheduler leaves the registry
// when it is cleaned up or expires, so the next Init creates a fresh one.
type Registry struct {
	mu      sync.Mutex
	current *Scheduler
}

// Init returns the live scheduler, or creates and starts one.
// cfg and deps are ignored when a scheduler is already live.
func (r *Registry) Init(cfg Config, deps Deps) (*Scheduler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return r.current, nil
	}

	s, err := NewScheduler(cfg, deps)
	if err != nil {
		return nil, err
	}
	s.onTeardown = r.release
	r.current = s
	s.Start()
	return s, nil
}

// Current returns the live scheduler or nil.
func (r *Registry) Current() *Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Cleanup tears down the live scheduler, if any. Safe to call repeatedly.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	s := r.current
	r.current = nil
	r.mu.Unlock()

	if s != nil {
		s.Cleanup()
	}
}

func (r *Registry) release(s *Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == s {
		r.current = nil
	}
}

// =============================================================================
// PROCESS-WIDE REGISTRY
// =============================================================================

var defaultRegistry = &Registry{}

// Init returns the process-wide scheduler, creating and starting it if needed.
func Init(cfg Config, deps Deps) (*Scheduler, error) {
	return defaultRegistry.Init(cfg, deps)
}

// Current returns the process-wide scheduler or nil.
func Current() *Scheduler {
	return defaultRegistry.Current()
}

// Cleanup tears down the process-wide scheduler.
func Cleanup() {
	defaultRegistry.Cleanup()
}
