// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package clock provides the time source and repeating-task handle used by
// the session keeper.
//
// Production code uses Real(), which is backed by time.Ticker. Tests use
// NewFake(), which advances virtual time and fires due tasks synchronously.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the time source for the session keeper.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Every runs fn once per interval until the returned Task is stopped.
	// The first run happens one interval after the call.
	Every(interval time.Duration, fn func()) Task
}

// Task is a handle to a repeating task.
//
// Stop is synchronous and idempotent: once it returns, no new invocation of
// the task function starts. It may be called from inside the task function.
type Task interface {
	Stop()
}

// =============================================================================
// REAL CLOCK
// =============================================================================

type realClock struct{}

// Real returns the wall clock.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Every(interval time.Duration, fn func()) Task {
	t := &tickerTask{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

// tickerTask drives fn from a time.Ticker on its own goroutine, so at most
// one invocation runs at a time. Ticks that arrive while fn is busy are
// dropped by the ticker.
type tickerTask struct {
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
	stopped atomic.Bool
}

func (t *tickerTask) run(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			if t.stopped.Load() {
				return
			}
			fn()
		}
	}
}

func (t *tickerTask) Stop() {
	t.once.Do(func() {
		t.stopped.Store(true)
		t.ticker.Stop()
		close(t.done)
	})
}
