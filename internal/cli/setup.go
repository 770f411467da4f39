// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/jeranaias/invoicely/internal/api"
	"github.com/jeranaias/invoicely/internal/config"
	"github.com/jeranaias/invoicely/internal/credentials"
	"github.com/jeranaias/invoicely/internal/logger"
)

// logFileName is used when the panel owns the terminal and no log file is
// configured.
const logFileName = "invoicely.log"

// loadConfig loads the config file named by --config, or the default one,
// and installs it as the global config.
func loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// configPath returns the file config commands read and write.
func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPath()
}

// setupLogger builds the process logger. With toFile set (the panel owns
// the terminal) logs go to a file even when none is configured.
func setupLogger(cfg *config.Config, args Args, toFile bool) (logger.Logger, func(), error) {
	lc := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	switch {
	case args.Verbose:
		lc.Level = "debug"
	case args.Quiet:
		lc.Level = "error"
	}

	closeFn := func() {}
	path := cfg.Log.File
	if path == "" && toFile {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, logFileName)
	}
	if path != "" {
		f, err := openLogFile(path)
		if err != nil {
			return nil, nil, err
		}
		lc.Output = f
		closeFn = func() { _ = f.Close() }
	} else {
		lc.Output = stderr
	}

	log := logger.New(lc)
	logger.SetDefault(log)
	return log, func() {
		_ = log.Sync()
		closeFn()
	}, nil
}

func openLogFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// openStore returns the credentials store for cfg.
func openStore(cfg *config.Config) (*credentials.Store, error) {
	path, err := cfg.CredentialsPath()
	if err != nil {
		return nil, err
	}
	return credentials.NewStore(path), nil
}

// newClient builds the backend client from cfg, seeded from store.
func newClient(cfg *config.Config, store api.CookieStore, log logger.Logger) (*api.Client, error) {
	client, err := api.NewClient(cfg.API.BaseURL)
	if err != nil {
		return nil, err
	}
	client.WithRefreshPath(cfg.API.RefreshPath).
		WithLoginPath(cfg.API.LoginPath).
		WithSignInPath(cfg.API.SignInPath).
		WithTimeout(cfg.APITimeout()).
		WithLogger(log)

	if cfg.API.RateLimit > 0 {
		client.WithLimiter(rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.RateBurst))
	} else {
		client.WithLimiter(nil)
	}

	if _, err := client.WithCookieStore(store); err != nil {
		return nil, fmt.Errorf("failed to load stored session: %w", err)
	}
	return client, nil
}

// historyDir is where session records are kept.
func historyDir() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}
