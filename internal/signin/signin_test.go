// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package signin

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/invoicely/internal/logger"
)

type fakeClearer struct {
	calls int
	err   error
}

func (f *fakeClearer) Clear() error {
	f.calls++
	return f.err
}

type recordingNav struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (n *recordingNav) Navigate(url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	return n.err
}

func signInURL() string { return "https://app.invoicely.example/sign-in" }

func TestRedirector_HandleExpiry(t *testing.T) {
	creds := &fakeClearer{}
	nav := &recordingNav{}
	r := NewRedirector(signInURL, creds, nav, logger.Nop())

	assert.False(t, r.Expired())
	assert.Nil(t, r.Reason())

	reason := errors.New("session expired")
	r.HandleExpiry(reason)

	assert.True(t, r.Expired())
	assert.Same(t, reason, r.Reason())
	assert.Equal(t, 1, creds.calls)
	assert.Equal(t, []string{signInURL()}, nav.urls)

	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestRedirector_OnlyFirstCallCounts(t *testing.T) {
	creds := &fakeClearer{}
	nav := &recordingNav{}
	r := NewRedirector(signInURL, creds, nav, logger.Nop())

	first := errors.New("first")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.HandleExpiry(first)
		}()
	}
	wg.Wait()
	r.HandleExpiry(errors.New("second"))

	assert.Equal(t, 1, creds.calls)
	assert.Len(t, nav.urls, 1)
	assert.Same(t, first, r.Reason())
}

func TestRedirector_NavigatesEvenIfClearFails(t *testing.T) {
	creds := &fakeClearer{err: errors.New("read-only fs")}
	nav := &recordingNav{}
	r := NewRedirector(signInURL, creds, nav, logger.Nop())

	r.HandleExpiry(errors.New("expired"))
	assert.Len(t, nav.urls, 1)
	assert.True(t, r.Expired())
}

func TestRedirector_NilCollaborators(t *testing.T) {
	r := NewRedirector(signInURL, nil, nil, nil)
	r.HandleExpiry(errors.New("expired"))
	assert.True(t, r.Expired())
}

func TestWriterNavigator(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriterNavigator{W: &buf}.Navigate("https://x.example/sign-in"))
	assert.Equal(t, "Session ended. Sign in again at: https://x.example/sign-in\n", buf.String())
}

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
		args []string
	}{
		{"linux", "xdg-open", []string{"u"}},
		{"darwin", "open", []string{"u"}},
		{"windows", "cmd", []string{"/c", "start", `""`, "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, "u")
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}

	_, _, err := browserCommand("plan9", "u")
	assert.Error(t, err)
}

func TestBrowserNavigator_UsesCommand(t *testing.T) {
	var gotArgs []string
	b := BrowserNavigator{command: func(name string, args ...string) *exec.Cmd {
		gotArgs = append([]string{name}, args...)
		return exec.Command(os.Args[0], "-test.run=^$")
	}}
	// The platform may be unsupported; only check the launcher when it is.
	if _, _, err := browserCommand(runtime.GOOS, "u"); err != nil {
		t.Skip("unsupported platform")
	}
	_ = b.Navigate("https://x.example")
	require.NotEmpty(t, gotArgs)
	assert.Equal(t, "https://x.example", gotArgs[len(gotArgs)-1])
}

func TestAll(t *testing.T) {
	panel := &recordingNav{}
	browser := &recordingNav{err: errors.New("xdg-open not found")}
	after := &recordingNav{}

	err := All(panel, browser, after).Navigate("u")
	assert.ErrorContains(t, err, "xdg-open")
	assert.Equal(t, []string{"u"}, panel.urls)
	assert.Equal(t, []string{"u"}, after.urls, "a failure does not stop later navigators")

	assert.NoError(t, All(panel).Navigate("v"))
	assert.ErrorIs(t, All().Navigate("u"), ErrNoNavigator)
}
