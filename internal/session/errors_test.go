// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRefreshError_Classification(t *testing.T) {
	rejected := newRefreshError(fmt.Errorf("refresh: %w", statusErr{code: 403}))
	assert.Equal(t, 403, rejected.Status)
	assert.ErrorIs(t, rejected, ErrRefreshRejected)
	assert.NotErrorIs(t, rejected, ErrRefreshTransport)
	assert.Contains(t, rejected.Error(), "HTTP 403")

	cause := errors.New("dial tcp: connection refused")
	transport := newRefreshError(cause)
	assert.Zero(t, transport.Status)
	assert.ErrorIs(t, transport, ErrRefreshTransport)
	assert.ErrorIs(t, transport, cause)
}

func TestExpiryKind(t *testing.T) {
	assert.Equal(t, "timeout", expiryKind(ErrSessionExpired))
	assert.Equal(t, "refresh_rejected", expiryKind(newRefreshError(statusErr{code: 500})))
	assert.Equal(t, "refresh_transport", expiryKind(newRefreshError(errors.New("eof"))))
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{CheckInterval: 10 * ms}.WithDefaults()
	assert.Equal(t, DefaultSessionTimeout, cfg.SessionTimeout)
	assert.Equal(t, DefaultExtendedTimeout, cfg.ExtendedTimeout)
	assert.Equal(t, DefaultRefreshThreshold, cfg.RefreshThreshold)
	assert.Equal(t, 10*ms, cfg.CheckInterval)
}
