// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tracks classification and dispatch statistics for
// intentgate.
//
// This package counts requests, cache activity, per-tier classification
// outcomes, and dispatch paths, providing the numbers behind the stats
// command and health checks.
//
// # Key Types
//
//   - Collector: Thread-safe counter set updated by the router
//   - Snapshot: Point-in-time copy of all counters, JSON-serializable
//
// # Usage
//
// Record outcomes as requests flow through:
//
//	stats := telemetry.NewCollector()
//	stats.RecordRequest(42 * time.Millisecond)
//	stats.RecordTier("primary", true, false, 40*time.Millisecond)
//	stats.RecordRouted()
//
// Read the counters back:
//
//	snap := stats.Snapshot()
//	fmt.Printf("requests: %d, cache hit rate: %.1f%%\n",
//	    snap.TotalRequests, snap.CacheHitRate*100)
//
// # Privacy
//
// The collector is local-only and does not transmit any data.
// Message content is never stored - only counts and latencies.
package telemetry
