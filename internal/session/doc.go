// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session keeps the invoicing session alive while the user is active.
//
// The Scheduler watches interaction events, refreshes the credential shortly
// before it would expire, extends the session once when activity continues
// near the base timeout, and forces a return to sign-in when the session
// expires or a refresh fails. A failed refresh is never retried.
//
// # Key Types
//
//   - Scheduler: the session activity scheduler
//   - Registry: owner of the single live Scheduler
//   - Config: timeouts, refresh threshold and check interval
//   - RefreshError: classified refresh failure
//
// # Usage
//
//	s, err := session.Init(session.DefaultConfig(), session.Deps{
//	    Source:    bus,
//	    Refresher: apiClient,
//	    Expiry:    redirector,
//	})
//	if err != nil {
//	    return err
//	}
//	defer session.Cleanup()
//
// After a manual re-authentication, restart the clock without tearing the
// scheduler down:
//
//	s.ResetSession()
//
// # Evaluation
//
// Every CheckInterval the scheduler evaluates, in order:
//
//  1. Extension: active since the last check, not yet extended, and past
//     SessionTimeout-RefreshThreshold. Refresh, mark extended, restart the
//     session clock.
//  2. Otherwise proactive refresh: activity within RefreshThreshold and the
//     applicable timeout is at most RefreshThreshold away.
//  3. Expiry: past the applicable timeout. Tear down and hand off to the
//     ExpiryHandler.
package session
