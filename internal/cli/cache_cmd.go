// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cache_cmd.go - Result cache management CLI commands for intentgate.
//
// Command: cache [subcommand]
// Short:   Manage the classification result cache
//
// Subcommands:
//   stats (default)     Show cache configuration and counters
//   clear               Drop cached classifications
//
// Examples:
//   intentgate cache                      Show stats (default)
//   intentgate cache stats --json         Stats in JSON format
//   intentgate cache clear                Drop every cached classification
//   intentgate cache clear --for "where is my order" --context language=en
//                                         Invalidate one message+context entry
//
// Flags:
//   --for MESSAGE       Invalidate the entry for this message only
//   --context k=v[,k=v] Context for --for fingerprinting (repeatable)
//   --json              Output in JSON format
//
// The cache lives in the embedding process; this command manages the cache
// of its own invocation and is primarily a harness for the admin operations.
package cli

import (
	"fmt"
	"strings"
)

// =============================================================================
// CACHE COMMAND HANDLER
// =============================================================================

// HandleCache handles the "cache" command with its subcommands.
func HandleCache(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "stats":
		return showCacheStats(args)
	case "clear":
		return clearCache(args, parser)
	default:
		return NewUsageError("unknown cache subcommand: %s", parser.Subcommand())
	}
}

// =============================================================================
// CACHE STATISTICS
// =============================================================================

// showCacheStats displays cache configuration and live counters.
func showCacheStats(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	r, _, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	stats := r.GetStats().Cache

	if args.JSON {
		data := CacheStatsData{
			Enabled:    cfg.Cache.Enabled,
			MaxEntries: cfg.Cache.MaxEntries,
			TTLMinutes: cfg.Cache.TTLMinutes,
			Stats:      stats,
		}
		return NewJSONResponse("cache stats", data).Print()
	}

	fmt.Println()
	fmt.Println("intentgate Result Cache")
	fmt.Println(strings.Repeat("=", 39))
	fmt.Println()
	fmt.Printf("  Enabled:     %t\n", cfg.Cache.Enabled)
	fmt.Printf("  Capacity:    %d entries\n", cfg.Cache.MaxEntries)
	fmt.Printf("  TTL:         %d minutes\n", cfg.Cache.TTLMinutes)
	fmt.Println()
	fmt.Printf("  Entries:     %d\n", stats.Entries)
	fmt.Printf("  Hits:        %d\n", stats.Hits)
	fmt.Printf("  Misses:      %d\n", stats.Misses)
	fmt.Printf("  Hit rate:    %.1f%%\n", stats.HitRate*100)
	fmt.Printf("  Evictions:   %d\n", stats.Evictions)
	fmt.Printf("  Expirations: %d\n", stats.Expirations)
	fmt.Println()
	return nil
}

// =============================================================================
// CACHE CLEARING
// =============================================================================

// clearCache drops the whole cache, or one entry when --for is given.
func clearCache(args Args, parser *ArgParser) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	r, _, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	target := parser.Flag("for")
	entriesBefore := r.GetStats().Cache.Entries

	if target != "" {
		requestContext, err := ParseContextPairs(parser.FlagAll("context"))
		if err != nil {
			return NewUsageError("invalid --context: %v", err)
		}
		if err := r.ClearCacheFor(target, requestContext); err != nil {
			return NewCommandError("cache", "clear", "invalidation failed", err)
		}
	} else {
		r.ClearCache()
	}

	cleared := entriesBefore - r.GetStats().Cache.Entries

	if args.JSON {
		return NewJSONResponse("cache clear", CacheClearData{Cleared: cleared}).Print()
	}
	fmt.Printf("Cleared %d cached classification(s)\n", cleared)
	return nil
}
