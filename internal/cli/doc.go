// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for
// intentgate.
//
// The CLI is a thin developer harness over the routing pipeline: it loads
// configuration, wires whatever tiers are reachable, and exposes the same
// operations an embedding application calls on the router.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global flags
//   - ArgParser: Unified flag/subcommand parsing for command handlers
//   - JSONResponse: Standard envelope for --json output
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdClassify:
//	    err = cli.HandleClassify(args)
//	case cli.CmdStats:
//	    err = cli.HandleStats(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - classify: Run one message (or a file of messages) through the pipeline
//   - stats: Routing statistics and tier health
//   - cache: Result cache statistics and clearing
//   - intents: Inspect the configured intent catalog
//   - config: Show, initialize, or locate the configuration file
//
// All commands support the --json flag; the payload is wrapped in the
// JSONResponse envelope so output can be piped into other tools.
//
// Tier wiring degrades gracefully: when the generative backend is down or
// the embedding model is missing, classification continues on the
// remaining tiers and the missing ones are reported by the stats command.
package cli
