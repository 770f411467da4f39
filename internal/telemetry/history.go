// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sort"
	"sync"
	"time"
)

// SessionRecord summarizes one scheduler run.
type SessionRecord struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`

	Refreshes       int  `json:"refreshes"`
	FailedRefreshes int  `json:"failed_refreshes"`
	Resets          int  `json:"resets"`
	Extended        bool `json:"extended"`

	// EndReason is "stopped" or an expiry kind such as "timeout".
	EndReason string `json:"end_reason,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// Duration returns how long the session ran, or has run so far.
func (r *SessionRecord) Duration(now time.Time) time.Duration {
	if r.EndTime.IsZero() {
		return now.Sub(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// History is a Sink that keeps a per-session summary and persists it when
// the session stops or expires.
type History struct {
	mu       sync.RWMutex
	sessions map[string]*SessionRecord
	storage  *HistoryStorage
	onError  func(error)
}

// NewHistory creates a history backed by dir (default ~/.invoicely/history).
func NewHistory(dir string) (*History, error) {
	storage, err := NewHistoryStorage(dir)
	if err != nil {
		return nil, err
	}
	return &History{
		sessions: make(map[string]*SessionRecord),
		storage:  storage,
	}, nil
}

// OnError sets a callback for persistence failures. Observe never returns
// errors because it runs inside the scheduler's event path.
func (h *History) OnError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = fn
}

// Storage returns the backing storage.
func (h *History) Storage() *HistoryStorage {
	return h.storage
}

// Observe implements Sink.
func (h *History) Observe(e Event) {
	h.mu.Lock()
	rec := h.sessions[e.SessionID]
	if rec == nil {
		rec = &SessionRecord{ID: e.SessionID, StartTime: e.At}
		h.sessions[e.SessionID] = rec
	}

	persist := false
	switch e.Name {
	case EventStarted:
		rec.StartTime = e.At
	case EventRefresh:
		rec.Refreshes++
		if e.Err != nil {
			rec.FailedRefreshes++
			rec.LastError = e.Err.Error()
		}
	case EventExtend:
		rec.Extended = true
	case EventReset:
		rec.Resets++
	case EventStopped:
		rec.EndTime = e.At
		if rec.EndReason == "" {
			rec.EndReason = EventStopped
		}
		persist = true
	case EventExpire:
		if rec.EndTime.IsZero() {
			rec.EndTime = e.At
		}
		rec.EndReason = e.Detail
		if e.Err != nil {
			rec.LastError = e.Err.Error()
		}
		persist = true
	}

	var snapshot SessionRecord
	if persist {
		snapshot = *rec
	}
	onError := h.onError
	h.mu.Unlock()

	if persist {
		if err := h.storage.Save(&snapshot); err != nil && onError != nil {
			onError(err)
		}
	}
}

// Current returns a copy of the in-memory record for id.
func (h *History) Current(id string) (SessionRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.sessions[id]
	if !ok {
		return SessionRecord{}, false
	}
	return *rec, true
}

// List returns the persisted sessions that started within [from, to],
// oldest first.
func (h *History) List(from, to time.Time) ([]*SessionRecord, error) {
	names, err := h.storage.List(from, to)
	if err != nil {
		return nil, err
	}
	records := make([]*SessionRecord, 0, len(names))
	for _, name := range names {
		rec, err := h.storage.Load(name)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})
	return records, nil
}

// Summary aggregates a set of session records.
type Summary struct {
	Sessions        int            `json:"sessions"`
	Refreshes       int            `json:"refreshes"`
	FailedRefreshes int            `json:"failed_refreshes"`
	Extended        int            `json:"extended"`
	EndReasons      map[string]int `json:"end_reasons"`
	TotalDuration   time.Duration  `json:"total_duration"`
}

// Summarize aggregates records.
func Summarize(records []*SessionRecord) Summary {
	s := Summary{EndReasons: make(map[string]int)}
	for _, r := range records {
		s.Sessions++
		s.Refreshes += r.Refreshes
		s.FailedRefreshes += r.FailedRefreshes
		if r.Extended {
			s.Extended++
		}
		if r.EndReason != "" {
			s.EndReasons[r.EndReason]++
		}
		if !r.EndTime.IsZero() {
			s.TotalDuration += r.EndTime.Sub(r.StartTime)
		}
	}
	return s
}
