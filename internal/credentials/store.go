// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credentials persists the session cookies issued by the invoicing
// backend and watches the cookie file for out-of-band sign-ins.
//
// SECURITY: The cookie file is written with 0600 permissions using an atomic
// temp-file rename, so readers never observe a partial write.
package credentials

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jeranaias/invoicely/internal/util"
)

// storedCookie is the on-disk form of a session cookie.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

type fileFormat struct {
	SavedAt time.Time      `json:"saved_at"`
	Cookies []storedCookie `json:"cookies"`
}

// Store is a file-backed cookie store.
type Store struct {
	path string

	mu         sync.Mutex
	lastDigest [sha256.Size]byte
	now        func() time.Time
}

// NewStore returns a store backed by path. The file need not exist.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored cookies. A missing file yields no cookies.
func (s *Store) Load() ([]*http.Cookie, error) {
	cookies, _, err := s.read(false)
	return cookies, err
}

// ReloadIfChanged reads the file and reports whether its content differs
// from what this store last loaded or saved. Writes made through this Store
// never count as changes.
func (s *Store) ReloadIfChanged() ([]*http.Cookie, bool, error) {
	return s.read(true)
}

func (s *Store) read(compare bool) ([]*http.Cookie, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read credentials: %w", err)
	}

	digest := sha256.Sum256(data)
	s.mu.Lock()
	changed := digest != s.lastDigest
	s.lastDigest = digest
	s.mu.Unlock()

	if compare && !changed {
		return nil, false, nil
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("failed to decode credentials: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(f.Cookies))
	for _, c := range f.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}
	return cookies, changed, nil
}

// Save replaces the stored cookies.
func (s *Store) Save(cookies []*http.Cookie) error {
	f := fileFormat{SavedAt: s.now().UTC()}
	for _, c := range cookies {
		f.Cookies = append(f.Cookies, storedCookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	s.lastDigest = sha256.Sum256(data)
	return nil
}

// Clear removes the stored cookies. Clearing a missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	s.lastDigest = [sha256.Size]byte{}
	return nil
}
