// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/invoicely/internal/util"
)

// recordTimeLayout prefixes record file names so they sort by start time.
const recordTimeLayout = "20060102-150405"

// =============================================================================
// HISTORY STORAGE
// =============================================================================

// HistoryStorage persists session records as one JSON file per session.
type HistoryStorage struct {
	dir string
}

// NewHistoryStorage creates the storage directory if needed.
func NewHistoryStorage(dir string) (*HistoryStorage, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(homeDir, ".invoicely", "history")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &HistoryStorage{dir: dir}, nil
}

// Dir returns the storage directory.
func (hs *HistoryStorage) Dir() string {
	return hs.dir
}

func recordName(rec *SessionRecord) string {
	return rec.StartTime.UTC().Format(recordTimeLayout) + "_" + rec.ID
}

// Save writes rec, replacing any earlier version of the same session.
func (hs *HistoryStorage) Save(rec *SessionRecord) error {
	if rec == nil {
		return nil
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(filepath.Join(hs.dir, recordName(rec)+".json"), data, 0600)
}

// Load reads the record stored under name, as returned by List.
func (hs *HistoryStorage) Load(name string) (*SessionRecord, error) {
	data, err := os.ReadFile(filepath.Join(hs.dir, name+".json"))
	if err != nil {
		return nil, err
	}
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the names of records that started within [from, to].
func (hs *HistoryStorage) List(from, to time.Time) ([]string, error) {
	var names []string
	err := hs.each(func(name string, started time.Time) {
		if started.Before(from.UTC().Truncate(time.Second)) || started.After(to) {
			return
		}
		names = append(names, name)
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// DeleteBefore removes records that started before the given time.
func (hs *HistoryStorage) DeleteBefore(before time.Time) (int, error) {
	removed := 0
	err := hs.each(func(name string, started time.Time) {
		if started.Before(before) {
			if os.Remove(filepath.Join(hs.dir, name+".json")) == nil {
				removed++
			}
		}
	})
	return removed, err
}

// Count returns the number of stored records.
func (hs *HistoryStorage) Count() (int, error) {
	n := 0
	err := hs.each(func(string, time.Time) { n++ })
	return n, err
}

func (hs *HistoryStorage) each(fn func(name string, started time.Time)) error {
	entries, err := os.ReadDir(hs.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		stamp, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		started, err := time.Parse(recordTimeLayout, stamp)
		if err != nil {
			continue // not a record file
		}
		fn(name, started)
	}
	return nil
}
