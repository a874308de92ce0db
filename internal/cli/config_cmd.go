// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command.
//
// Command: aide config [show|init|path]
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/aide/internal/config"
)

// HandleConfig dispatches config subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return showConfig(args)

	case "init":
		return initConfig()

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("config: unknown subcommand %q (want show, init, or path)", args.Subcommand)
	}
}

// showConfig prints the effective configuration after defaults and env
// overrides are applied.
func showConfig(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// initConfig writes a default config.toml unless one already exists.
func initConfig() error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config init: %s already exists", path)
	}
	if err := config.Default().Save(); err != nil {
		return fmt.Errorf("config init: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
