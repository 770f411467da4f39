// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package activity provides the user-interaction event source observed by
// the session keeper.
//
// # Key Types
//
//   - Kind: one of the interaction kinds that count as user activity
//   - Source: anything that can deliver interaction events to listeners
//   - Bus: the in-process Source; adapters publish into it
//
// # Usage
//
//	bus := activity.NewBus()
//	sub := bus.Subscribe(activity.AllKinds(), func(e activity.Event) {
//	    // record activity
//	})
//	defer sub.Unsubscribe()
//
//	bus.Publish(activity.KeyPress)
package activity

import (
	"sync"
	"time"
)

// Kind identifies a user-interaction event.
type Kind int

const (
	PointerDown Kind = iota
	PointerMove
	KeyPress
	Scroll
	TouchStart
	Click
)

// String returns the event name.
func (k Kind) String() string {
	switch k {
	case PointerDown:
		return "pointerdown"
	case PointerMove:
		return "pointermove"
	case KeyPress:
		return "keypress"
	case Scroll:
		return "scroll"
	case TouchStart:
		return "touchstart"
	case Click:
		return "click"
	default:
		return "unknown"
	}
}

// ParseKind returns the Kind named s, as produced by Kind.String.
func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds() {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// AllKinds returns every interaction kind that counts as activity.
func AllKinds() []Kind {
	return []Kind{PointerDown, PointerMove, KeyPress, Scroll, TouchStart, Click}
}

// Event is a single interaction.
type Event struct {
	Kind Kind
	At   time.Time
}

// Listener receives interaction events.
type Listener func(Event)

// Source delivers interaction events to subscribed listeners.
type Source interface {
	Subscribe(kinds []Kind, l Listener) Subscription
}

// Subscription is a registered listener. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// =============================================================================
// BUS
// =============================================================================

// Bus is an in-process Source. Publish fans an event out to every listener
// subscribed to its kind. Listeners run on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*busSub
	now    func() time.Time
}

type busSub struct {
	bus   *Bus
	id    uint64
	kinds map[Kind]bool
	fn    Listener
	once  sync.Once
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[uint64]*busSub),
		now:  time.Now,
	}
}

// Subscribe registers l for the given kinds.
func (b *Bus) Subscribe(kinds []Kind, l Listener) Subscription {
	set := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &busSub{bus: b, id: b.nextID, kinds: set, fn: l}
	b.subs[s.id] = s
	return s
}

// Publish delivers an event of the given kind.
func (b *Bus) Publish(kind Kind) {
	e := Event{Kind: kind, At: b.now()}

	b.mu.RLock()
	targets := make([]Listener, 0, len(b.subs))
	for _, s := range b.subs {
		if s.kinds[kind] {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(e)
	}
}

// Listeners returns the number of live subscriptions.
func (b *Bus) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (s *busSub) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
	})
}
