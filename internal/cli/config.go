// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/invoicely/internal/config"
)

// HandleConfig handles `config [show|path|get|set|keys|init]`.
func HandleConfig(args Args) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config show", cfg).Print()
		}
		fmt.Fprintf(stdout, "# effective configuration (%s)\n", path)
		return toml.NewEncoder(stdout).Encode(cfg)

	case "path":
		if args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": path}).Print()
		}
		fmt.Fprintln(stdout, path)
		return nil

	case "get":
		if args.ConfigKey == "" {
			return fmt.Errorf("usage: invoicely config get KEY")
		}
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(args.ConfigKey)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config get", map[string]interface{}{args.ConfigKey: v}).Print()
		}
		fmt.Fprintln(stdout, v)
		return nil

	case "set":
		if args.ConfigKey == "" || args.ConfigValue == "" {
			return fmt.Errorf("usage: invoicely config set KEY VALUE")
		}
		return setConfigValue(path, args.ConfigKey, args.ConfigValue)

	case "keys":
		keys := config.Keys()
		if args.JSON {
			return NewJSONResponse("config keys", keys).Print()
		}
		fmt.Fprintln(stdout, strings.Join(keys, "\n"))
		return nil

	case "init":
		if fileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (use show, path, get, set, keys or init)", args.Subcommand)
	}
}

// setConfigValue updates one key in the file at path. Environment
// overrides are not applied, so they never leak into the saved file.
func setConfigValue(path, key, value string) error {
	cfg := config.Default()
	if fileExists(path) {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	}
	cfg.SetDefaults()

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s = %s\n", key, value)
	return nil
}
