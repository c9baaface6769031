// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stats_cmd.go - Statistics and tier health command for intentgate.
//
// Command: stats
// Short:   Show routing statistics and tier health
// Aliases: s
//
// Examples:
//   intentgate stats              Tier health plus counters
//   intentgate stats --json       Machine-readable snapshot
//
// Counters cover the current process. Embedding applications read the same
// numbers through the router's GetStats operation.
package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/intentgate/internal/router"
)

// =============================================================================
// STATS COMMAND HANDLER
// =============================================================================

// HandleStats handles the "stats" command.
func HandleStats(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	r, health, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	stats := r.GetStats()

	if args.JSON {
		data := StatsData{
			Stats:      stats,
			Tiers:      health,
			ConfigPath: resolvedConfigPath(args),
		}
		return NewJSONResponse("stats", data).Print()
	}

	fmt.Println()
	fmt.Println("intentgate Status")
	fmt.Println(strings.Repeat("=", 39))
	fmt.Println()

	fmt.Println("Classification Tiers")
	printTierStatus("Primary (generative)", health.Primary)
	printTierStatus("Secondary (embedding)", health.Secondary)
	fmt.Printf("  %-22s %s\n", "Tertiary (keyword):", "always available")
	fmt.Println()

	printStatsView(stats)
	return nil
}

// printTierStatus renders one tier health line.
func printTierStatus(label string, status TierStatus) {
	state := "not configured"
	switch {
	case status.Available:
		state = "available"
	case status.Configured:
		state = "unavailable"
	}
	if status.Detail != "" {
		state += " (" + status.Detail + ")"
	}
	fmt.Printf("  %-22s %s\n", label+":", state)
}

// printStatsView renders the combined service and cache counters.
func printStatsView(stats router.StatsView) {
	svc := stats.Service

	fmt.Println("Requests")
	fmt.Printf("  Total:       %d\n", svc.TotalRequests)
	fmt.Printf("  Avg latency: %.1fms\n", svc.AvgLatencyMs)
	fmt.Printf("  Empty input: %d\n", svc.EmptyInputs)
	fmt.Println()

	fmt.Println("Dispatch")
	fmt.Printf("  Routed:      %d\n", svc.RoutedDispatches)
	fmt.Printf("  Fallback:    %d\n", svc.FallbackRoutes)
	fmt.Printf("  Escalated:   %d\n", svc.Escalations)
	fmt.Printf("  Faults:      %d\n", svc.DispatchFaults)
	fmt.Println()

	fmt.Println("Tiers")
	for _, tier := range []string{"primary", "secondary", "keyword"} {
		attempts := svc.TierAttempts[tier]
		if attempts == 0 {
			continue
		}
		fmt.Printf("  %-10s attempts=%d accepts=%d failures=%d avg=%.1fms\n",
			tier+":", attempts, svc.TierAccepts[tier], svc.TierFailures[tier], svc.TierAvgLatencyMs[tier])
	}
	if len(svc.TierAttempts) == 0 {
		fmt.Println("  (no classifications yet)")
	}
	fmt.Println()

	fmt.Println("Cache")
	fmt.Printf("  Entries:     %d\n", stats.Cache.Entries)
	fmt.Printf("  Hit rate:    %.1f%%\n", stats.Cache.HitRate*100)
	fmt.Printf("  Evictions:   %d\n", stats.Cache.Evictions)
	fmt.Printf("  Expirations: %d\n", stats.Cache.Expirations)
	fmt.Println()

	fmt.Printf("Active conversations: %d\n", stats.ActiveConversations)
}
