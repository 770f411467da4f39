// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jeranaias/invoicely/internal/logger"
)

// HandleLogin signs in and stores the session cookies.
func HandleLogin(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	log, closeLog, err := setupLogger(cfg, args, false)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, store, log)
	if err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	email, password, err := readLogin(args, in)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Login(ctx, email, password); err != nil {
		log.Debug("login failed", logger.Err(err))
		return fmt.Errorf("sign-in failed: %w", err)
	}

	return OutputJSON(args.JSON, CmdLogin.String(), func() (interface{}, error) {
		if !args.JSON {
			fmt.Fprintf(stdout, "Signed in as %s. Session saved to %s\n", email, store.Path())
		}
		return map[string]string{"email": email, "credentials_path": store.Path()}, nil
	})
}

// readLogin collects the email and password. The email is prompted for when
// not given. The password comes from stdin with --password-stdin, otherwise
// from a no-echo terminal prompt.
func readLogin(args Args, in *bufio.Reader) (string, string, error) {
	email := strings.TrimSpace(args.Email)
	if email == "" {
		if err := RequiresTTY("prompt for an email"); err != nil && !args.PasswordStdin {
			return "", "", err
		}
		fmt.Fprint(stderr, "Email: ")
		line, err := readLine(in)
		if err != nil {
			return "", "", err
		}
		email = line
	}

	var password string
	if args.PasswordStdin {
		line, err := readLine(in)
		if err != nil {
			return "", "", err
		}
		password = line
	} else {
		if err := RequiresTTY("prompt for a password"); err != nil {
			return "", "", fmt.Errorf("%w (use --password-stdin)", err)
		}
		fmt.Fprint(stderr, "Password: ")
		pw, err := readPassword()
		fmt.Fprintln(stderr)
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(pw)
	}

	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}
	return email, password, nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// HandleLogout removes the stored session cookies.
func HandleLogout(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	return OutputJSON(args.JSON, CmdLogout.String(), func() (interface{}, error) {
		if err := store.Clear(); err != nil {
			return nil, err
		}
		if !args.JSON {
			fmt.Fprintf(stdout, "Signed out. Removed %s\n", store.Path())
		}
		return map[string]string{"credentials_path": store.Path()}, nil
	})
}
