// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package signin

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// ErrNoNavigator is returned by Multi when given no navigators.
var ErrNoNavigator = errors.New("no navigator configured")

// Navigator takes the user to a URL.
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string) error

// Navigate calls f(url).
func (f NavigatorFunc) Navigate(url string) error {
	return f(url)
}

// WriterNavigator prints the sign-in URL. Used when running headless.
type WriterNavigator struct {
	W io.Writer
}

// Navigate writes a sign-in notice to W.
func (n WriterNavigator) Navigate(url string) error {
	_, err := fmt.Fprintf(n.W, "Session ended. Sign in again at: %s\n", url)
	return err
}

// BrowserNavigator opens the URL in the default browser.
type BrowserNavigator struct {
	// command overrides the launcher in tests.
	command func(name string, args ...string) *exec.Cmd
}

// Navigate launches the platform browser opener without waiting for it.
func (b BrowserNavigator) Navigate(url string) error {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	cmd := exec.Command
	if b.command != nil {
		cmd = b.command
	}
	return cmd(name, args...).Start()
}

func browserCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "windows":
		// Empty quoted string is the window title.
		return "cmd", []string{"/c", "start", `""`, url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// All calls every navigator, in order, and joins their errors.
func All(navs ...Navigator) Navigator {
	return NavigatorFunc(func(url string) error {
		if len(navs) == 0 {
			return ErrNoNavigator
		}
		var errs []error
		for _, n := range navs {
			if err := n.Navigate(url); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
