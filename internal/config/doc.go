// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for intentgate.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and field-level validation. The [[intents]] array replaces the
// built-in intent catalog when present.
//
// # Key Types
//
//   - Config: main configuration structure with all settings
//   - ClassifyConfig: cascade thresholds and primary tier timeout
//   - DispatchConfig: gate threshold, retries, handlers, frustration words
//   - PrimaryConfig / SecondaryConfig: classifier tier wiring
//   - Watcher: fsnotify-based hot reload with debounce
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (INTENTGATE_*)
//   - ~/.intentgate/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Watch for edits:
//
//	w, _ := config.NewWatcher(path, time.Second, func(c *config.Config) {
//	    // swap in the new config
//	})
//	w.Watch()
//
// Invalid edits are logged and dropped; the previous config stays active.
package config
