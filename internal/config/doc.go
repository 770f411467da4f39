// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for invoicely.
//
// # Key Types
//
//   - Config: main configuration structure
//   - SessionConfig: scheduler timings, in milliseconds
//   - APIConfig: backend URL and endpoint paths
//   - ServerConfig: the optional loopback activity bridge
//   - ValidateErrors: every problem found by Validate, sorted by field
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (INVOICELY_*)
//   - ~/.invoicely/config.toml (INVOICELY_HOME moves the directory)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	sched, err := session.Init(cfg.SessionSettings(), deps)
package config
