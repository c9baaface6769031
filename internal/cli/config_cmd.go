// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration management CLI commands for intentgate.
//
// Command: config [subcommand]
// Short:   Show, initialize, or locate the configuration file
//
// Subcommands:
//   show (default)      Show the resolved configuration
//   init                Write the default config file
//   path                Print the config file path
//
// Examples:
//   intentgate config                     Show resolved configuration
//   intentgate config show --json         Configuration in JSON format
//   intentgate config init                Write ~/.intentgate/intentgate.toml
//   intentgate config init --force        Overwrite an existing file
//   intentgate config path                Print the config file location
//
// Flags:
//   --force             Overwrite an existing config file on init
//   --json              Output in JSON format
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/intentgate/internal/config"
)

// =============================================================================
// CONFIG COMMAND HANDLER
// =============================================================================

// HandleConfig handles the "config" command with its subcommands.
func HandleConfig(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "show":
		return showConfig(args)
	case "init":
		return initConfig(args, parser.BoolFlag("force"))
	case "path":
		return printConfigPath(args)
	default:
		return NewUsageError("unknown config subcommand: %s", parser.Subcommand())
	}
}

// showConfig displays the resolved configuration after defaults and
// environment overrides.
func showConfig(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	path := resolvedConfigPath(args)

	if args.JSON {
		return NewJSONResponse("config show", ConfigData{Path: path, Config: cfg}).Print()
	}

	fmt.Println()
	fmt.Println("intentgate Configuration")
	fmt.Println(strings.Repeat("=", 39))
	fmt.Println()
	fmt.Printf("  Config file: %s\n", configPathState(path))
	fmt.Println()
	fmt.Println("Cache")
	fmt.Printf("  Enabled:     %t\n", cfg.Cache.Enabled)
	fmt.Printf("  Max entries: %d\n", cfg.Cache.MaxEntries)
	fmt.Printf("  TTL:         %d minutes\n", cfg.Cache.TTLMinutes)
	fmt.Println()
	fmt.Println("Classification")
	fmt.Printf("  Primary threshold:   %.2f\n", cfg.Classify.PrimaryAcceptThreshold)
	fmt.Printf("  Secondary threshold: %.2f\n", cfg.Classify.SecondaryAcceptThreshold)
	fmt.Printf("  Primary timeout:     %ds\n", cfg.Classify.PrimaryTimeoutSecs)
	fmt.Println()
	fmt.Println("Dispatch")
	fmt.Printf("  Confidence threshold: %.2f\n", cfg.Dispatch.ConfidenceThreshold)
	fmt.Printf("  Max retries:          %d\n", cfg.Dispatch.MaxRetries)
	fmt.Printf("  Fallback handler:     %s\n", cfg.Dispatch.FallbackHandler)
	fmt.Printf("  Escalation handler:   %s\n", cfg.Dispatch.EscalationHandler)
	fmt.Println()
	fmt.Println("Primary Tier")
	fmt.Printf("  Enabled:     %t\n", cfg.Primary.Enabled)
	fmt.Printf("  URL:         %s\n", cfg.Primary.BaseURL)
	fmt.Printf("  Model:       %s\n", cfg.Primary.Model)
	fmt.Println()
	fmt.Println("Secondary Tier")
	fmt.Printf("  Enabled:     %t\n", cfg.Secondary.Enabled)
	fmt.Printf("  Model path:  %s\n", cfg.Secondary.ModelPath)
	fmt.Println()
	fmt.Printf("Intents: %d configured", intentCount(cfg))
	if len(cfg.Intents) == 0 {
		fmt.Print(" (built-in defaults)")
	}
	fmt.Println()
	fmt.Println()
	return nil
}

// initConfig writes the default configuration file.
func initConfig(args Args, force bool) error {
	path := args.ConfigPath
	if path == "" {
		var err error
		path, err = config.ConfigPathTOML()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return NewCommandError("config", "init", fmt.Sprintf("%s already exists, use --force to overwrite", path), nil)
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return NewCommandError("config", "init", "write failed", err)
	}

	if args.JSON {
		return NewJSONResponse("config init", ConfigData{Path: path}).Print()
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return nil
}

// printConfigPath prints the effective config file path.
func printConfigPath(args Args) error {
	path := resolvedConfigPath(args)
	if path == "" {
		return fmt.Errorf("cannot determine config path")
	}
	if args.JSON {
		return NewJSONResponse("config path", ConfigData{Path: path}).Print()
	}
	fmt.Println(path)
	return nil
}

// intentCount reports how many intents the effective catalog holds.
func intentCount(cfg *config.Config) int {
	if len(cfg.Intents) > 0 {
		return len(cfg.Intents)
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return 0
	}
	return catalog.Len()
}

// configPathState annotates the path with whether the file exists.
func configPathState(path string) string {
	if path == "" {
		return "(unknown)"
	}
	if _, err := os.Stat(path); err != nil {
		return path + " (not present, using defaults)"
	}
	return path
}
