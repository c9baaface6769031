// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared helper functions used across multiple CLI commands.
package cli

import (
	"github.com/jeranaias/intentgate/internal/config"
)

// truncate shortens a string for single-line display. Messages are
// user text, so the cut is rune-safe.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// resolvedConfigPath reports the config file path the command is using:
// the explicit --config path, or the default location.
func resolvedConfigPath(args Args) string {
	if args.ConfigPath != "" {
		return args.ConfigPath
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}
