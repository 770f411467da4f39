// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package signin ends an expired session by discarding local credentials
// and sending the user to the sign-in page.
package signin

import (
	"sync"

	"github.com/jeranaias/invoicely/internal/logger"
)

// CredentialClearer discards locally held credentials.
type CredentialClearer interface {
	Clear() error
}

// Redirector handles session expiry. It implements session.ExpiryHandler.
//
// The redirect is unconditional: after expiry the credential is assumed
// invalid, so nothing in the running process is trusted to resume.
type Redirector struct {
	signInURL   func() string
	credentials CredentialClearer
	nav         Navigator
	log         logger.Logger

	once   sync.Once
	mu     sync.Mutex
	reason error
	done   chan struct{}
}

// NewRedirector returns a Redirector that navigates to signInURL().
// credentials may be nil.
func NewRedirector(signInURL func() string, credentials CredentialClearer, nav Navigator, log logger.Logger) *Redirector {
	if log == nil {
		log = logger.Default()
	}
	return &Redirector{
		signInURL:   signInURL,
		credentials: credentials,
		nav:         nav,
		log:         log,
		done:        make(chan struct{}),
	}
}

// HandleExpiry clears credentials and navigates to sign-in. Only the first
// call has any effect.
func (r *Redirector) HandleExpiry(reason error) {
	r.once.Do(func() {
		r.mu.Lock()
		r.reason = reason
		r.mu.Unlock()
		defer close(r.done)

		if r.credentials != nil {
			if err := r.credentials.Clear(); err != nil {
				r.log.Error("failed to clear credentials", logger.Err(err))
			}
		}

		url := r.signInURL()
		r.log.Info("redirecting to sign-in", logger.String("url", url), logger.Err(reason))
		if r.nav == nil {
			return
		}
		if err := r.nav.Navigate(url); err != nil {
			r.log.Error("sign-in navigation failed", logger.String("url", url), logger.Err(err))
		}
	})
}

// Done is closed once expiry handling has finished.
func (r *Redirector) Done() <-chan struct{} {
	return r.done
}

// Reason returns why the session ended, or nil while it is live.
func (r *Redirector) Reason() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Expired reports whether expiry handling has finished.
func (r *Redirector) Expired() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
