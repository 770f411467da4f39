// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

// Reasons handed to the ExpiryHandler. None of them are returned to callers
// of the scheduler.
var (
	// ErrSessionExpired means the local clock passed the applicable timeout.
	ErrSessionExpired = errors.New("session expired")

	// ErrRefreshRejected means the refresh endpoint answered with a non-2xx status.
	ErrRefreshRejected = errors.New("refresh rejected")

	// ErrRefreshTransport means the refresh request never got a response.
	ErrRefreshTransport = errors.New("refresh transport failure")
)

// Construction errors.
var (
	ErrNoRefresher   = errors.New("session: token refresher is required")
	ErrNoExpiry      = errors.New("session: expiry handler is required")
	ErrInvalidConfig = errors.New("session: invalid config")
)

// statusCoder is satisfied by errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// RefreshError is a failed refresh. Status is zero for transport failures.
type RefreshError struct {
	Status int
	Err    error
}

// newRefreshError classifies err as a rejection when it carries an HTTP status.
func newRefreshError(err error) *RefreshError {
	var sc statusCoder
	if errors.As(err, &sc) {
		return &RefreshError{Status: sc.HTTPStatus(), Err: err}
	}
	return &RefreshError{Err: err}
}

func (e *RefreshError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%v (HTTP %d): %v", ErrRefreshRejected, e.Status, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrRefreshTransport, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Is matches ErrRefreshRejected or ErrRefreshTransport by classification.
func (e *RefreshError) Is(target error) bool {
	switch target {
	case ErrRefreshRejected:
		return e.Status != 0
	case ErrRefreshTransport:
		return e.Status == 0
	}
	return false
}

// expiryKind labels an expiry reason for logs and metrics.
func expiryKind(reason error) string {
	switch {
	case errors.Is(reason, ErrRefreshRejected):
		return "refresh_rejected"
	case errors.Is(reason, ErrRefreshTransport):
		return "refresh_transport"
	default:
		return "timeout"
	}
}
