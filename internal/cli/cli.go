// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for intentgate.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdClassify Command = iota
	CmdStats
	CmdCache
	CmdIntents
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool   // Output in JSON format
	ConfigPath string // Explicit config file path (--config)

	// Command-specific
	Subcommand string

	// Raw args (remaining after global flag parsing)
	Raw []string
}

const usageText = `intentgate - hybrid intent classification and dispatch

Intentgate classifies short user messages against a configured intent
catalog and decides which handler each message should be routed to.

It provides:
  - A three-tier classification cascade (generative, embedding, keyword)
  - Deterministic request fingerprinting with an LRU + TTL result cache
  - Confidence gating with escalation to human handoff
  - TOML configuration with environment overrides and hot reload

Usage:
  intentgate classify <message>       Classify one message, print the decision
  intentgate stats                    Show routing statistics and tier health
  intentgate cache [stats|clear]      Cache management
  intentgate intents [name]           List configured intents
  intentgate config [show|init|path]  Configuration management
  intentgate version                  Show version information

Classify Command:
  intentgate classify "where is my order"
    --context k=v[,k=v]   Request context (repeatable); only allow-listed
                          keys influence the cache fingerprint
    --session ID          Conversation id, shorthand for
                          --context conversation_id=ID
    --file FILE           Classify every non-empty line of FILE
    --stats               Print routing statistics after classifying

Cache Commands:
  intentgate cache stats  Show cache configuration and counters
  intentgate cache clear  Drop every cached classification
  intentgate cache clear --for "message" [--context k=v]
                          Invalidate the entry for one message+context

Config Commands:
  intentgate config show  Show the resolved configuration
  intentgate config init  Write the default config file
  intentgate config path  Print the config file path

Global Flags:
  --config PATH   Use a specific config file
  --json          Output in JSON format
  -q, --quiet     Minimal output
  -v, --verbose   Debug output

Examples:
  intentgate classify "hi there"
  intentgate classify "where is my order" --context language=en --json
  intentgate classify --file messages.txt --stats
  intentgate cache clear --for "where is my order" --context language=en
  intentgate intents --json
  intentgate config init

The classify command wires the generative and embedding tiers when they are
reachable and silently degrades to keyword matching when they are not.

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("intentgate version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	remaining, parsedArgs := parseGlobalFlags(args)

	// No command defaults to help.
	if len(remaining) == 0 {
		return CmdHelp, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	if len(remaining) > 0 {
		parsedArgs.Subcommand = remaining[0]
	}

	switch cmd {
	case "classify", "c":
		return CmdClassify, parsedArgs

	case "stats", "s":
		return CmdStats, parsedArgs

	case "cache":
		return CmdCache, parsedArgs

	case "intents", "intent":
		return CmdIntents, parsedArgs

	case "config":
		return CmdConfig, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Keep the unknown token so main can suggest a correction.
		parsedArgs.Subcommand = cmd
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		resp := NewJSONResponse("version", data)
		resp.Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

// HandleUnknown reports an unrecognized command, suggesting the closest
// valid one when the input looks like a typo.
func HandleUnknown(args Args) {
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args.Subcommand)
	if suggestion := SuggestCommand(args.Subcommand); suggestion != "" {
		fmt.Fprintf(os.Stderr, "Did you mean: intentgate %s?\n", suggestion)
	}
	fmt.Fprintln(os.Stderr, "Run 'intentgate help' for usage.")
}
