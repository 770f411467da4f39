// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresInOrder(t *testing.T) {
	f := NewFake(epoch)
	var fired []time.Duration

	f.Every(100*time.Millisecond, func() {
		fired = append(fired, f.Now().Sub(epoch))
	})
	f.Every(250*time.Millisecond, func() {
		fired = append(fired, -f.Now().Sub(epoch))
	})

	f.Advance(500 * time.Millisecond)

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		-250 * time.Millisecond,
		300 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		-500 * time.Millisecond,
	}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("fired[%d] = %v, want %v", i, fired[i], want[i])
		}
	}
	if got := f.Now(); !got.Equal(epoch.Add(500 * time.Millisecond)) {
		t.Errorf("Now() = %v, want %v", got, epoch.Add(500*time.Millisecond))
	}
}

func TestFake_Stop(t *testing.T) {
	tests := []struct {
		name      string
		stopAfter int
		wantCalls int
	}{
		{"before first tick", 0, 0},
		{"inside second tick", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFake(epoch)
			var calls int
			var task Task
			task = f.Every(time.Second, func() {
				calls++
				if calls == tt.stopAfter {
					task.Stop()
				}
			})
			if tt.stopAfter == 0 {
				task.Stop()
				task.Stop()
			}

			f.Advance(10 * time.Second)

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if n := f.Pending(); n != 0 {
				t.Errorf("Pending() = %d, want 0", n)
			}
		})
	}
}

func TestReal_EveryAndStop(t *testing.T) {
	var calls atomic.Int32
	task := Real().Every(5*time.Millisecond, func() { calls.Add(1) })

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("task ran %d times in 1s", calls.Load())
		}
		time.Sleep(time.Millisecond)
	}

	task.Stop()
	task.Stop()
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	// One invocation may already have been running when Stop was called.
	if got := calls.Load(); got > after+1 {
		t.Errorf("calls after Stop = %d, want <= %d", got, after+1)
	}
}
