// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"time"
)

// Default timing values.
const (
	DefaultSessionTimeout   = 30 * time.Minute
	DefaultExtendedTimeout  = 60 * time.Minute
	DefaultRefreshThreshold = 5 * time.Minute
	DefaultCheckInterval    = time.Minute

	// DefaultRefreshTimeout bounds a single refresh request.
	DefaultRefreshTimeout = 30 * time.Second
)

// Config holds the scheduler timing. Zero fields fall back to defaults.
type Config struct {
	// SessionTimeout is the base session lifetime (default: 30 minutes)
	SessionTimeout time.Duration

	// ExtendedTimeout is the lifetime after the one-time extension (default: 60 minutes)
	ExtendedTimeout time.Duration

	// RefreshThreshold is how far ahead of expiry a refresh is issued (default: 5 minutes)
	RefreshThreshold time.Duration

	// CheckInterval is the evaluation cadence (default: 1 minute)
	CheckInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		SessionTimeout:   DefaultSessionTimeout,
		ExtendedTimeout:  DefaultExtendedTimeout,
		RefreshThreshold: DefaultRefreshThreshold,
		CheckInterval:    DefaultCheckInterval,
	}
}

// WithDefaults returns c with every zero field replaced by its default.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.SessionTimeout == 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.ExtendedTimeout == 0 {
		c.ExtendedTimeout = d.ExtendedTimeout
	}
	if c.RefreshThreshold == 0 {
		c.RefreshThreshold = d.RefreshThreshold
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = d.CheckInterval
	}
	return c
}

// Validate rejects negative durations.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"session timeout", c.SessionTimeout},
		{"extended timeout", c.ExtendedTimeout},
		{"refresh threshold", c.RefreshThreshold},
		{"check interval", c.CheckInterval},
	} {
		if f.d < 0 {
			return fmt.Errorf("%w: %s must not be negative (got %v)", ErrInvalidConfig, f.name, f.d)
		}
	}
	return nil
}

// timeoutFor returns the applicable lifetime.
func (c Config) timeoutFor(extended bool) time.Duration {
	if extended {
		return c.ExtendedTimeout
	}
	return c.SessionTimeout
}
