// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tracks classification and dispatch statistics for the
// running process.
package telemetry

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// STATS COLLECTOR
// =============================================================================

// Collector accumulates counters and latency sums for every request that
// passes through the router. All methods are safe for concurrent use.
type Collector struct {
	mu sync.RWMutex

	startedAt time.Time

	totalRequests int
	totalLatency  time.Duration

	cacheHits   int
	cacheMisses int

	tierAttempts map[string]int
	tierAccepts  map[string]int
	tierFailures map[string]int
	tierLatency  map[string]time.Duration

	routedDispatches int
	fallbackRoutes   int
	escalations      int
	dispatchFaults   int
	emptyInputs      int
}

// Snapshot is a point-in-time copy of the collector state.
type Snapshot struct {
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`

	TotalRequests int     `json:"total_requests"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`

	CacheHits    int     `json:"cache_hits"`
	CacheMisses  int     `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	TierAttempts     map[string]int     `json:"tier_attempts"`
	TierAccepts      map[string]int     `json:"tier_accepts"`
	TierFailures     map[string]int     `json:"tier_failures"`
	TierAvgLatencyMs map[string]float64 `json:"tier_avg_latency_ms"`

	RoutedDispatches int `json:"routed_dispatches"`
	FallbackRoutes   int `json:"fallback_routes"`
	Escalations      int `json:"escalations"`
	DispatchFaults   int `json:"dispatch_faults"`
	EmptyInputs      int `json:"empty_inputs"`
}

// NewCollector creates an empty stats collector.
func NewCollector() *Collector {
	return &Collector{
		startedAt:    time.Now(),
		tierAttempts: make(map[string]int),
		tierAccepts:  make(map[string]int),
		tierFailures: make(map[string]int),
		tierLatency:  make(map[string]time.Duration),
	}
}

// RecordRequest counts one routed request and its end-to-end latency.
func (c *Collector) RecordRequest(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	c.totalLatency += latency
}

// RecordCacheHit counts a classification served from the result cache.
func (c *Collector) RecordCacheHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits++
}

// RecordCacheMiss counts a classification that had to run the cascade.
func (c *Collector) RecordCacheMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheMisses++
}

// RecordTier counts one attempt against a classification tier.
// faulted marks attempts that errored rather than cleanly declining.
func (c *Collector) RecordTier(tier string, accepted, faulted bool, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tierAttempts[tier]++
	if accepted {
		c.tierAccepts[tier]++
	}
	if faulted {
		c.tierFailures[tier]++
	}
	c.tierLatency[tier] += latency
}

// RecordRouted counts a dispatch to the intent's own handler.
func (c *Collector) RecordRouted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routedDispatches++
}

// RecordFallbackRoute counts a dispatch diverted to the fallback handler.
func (c *Collector) RecordFallbackRoute() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbackRoutes++
}

// RecordEscalation counts a dispatch diverted to the escalation handler.
func (c *Collector) RecordEscalation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.escalations++
}

// RecordDispatchFault counts a gate fault that was converted into a safe
// fallback decision.
func (c *Collector) RecordDispatchFault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchFaults++
}

// RecordEmptyInput counts a request short-circuited before classification.
func (c *Collector) RecordEmptyInput() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emptyInputs++
}

// Snapshot returns a copy of the current statistics. The returned maps are
// fresh copies, callers may mutate them freely.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		StartedAt:        c.startedAt,
		UptimeSeconds:    time.Since(c.startedAt).Seconds(),
		TotalRequests:    c.totalRequests,
		CacheHits:        c.cacheHits,
		CacheMisses:      c.cacheMisses,
		TierAttempts:     copyCounts(c.tierAttempts),
		TierAccepts:      copyCounts(c.tierAccepts),
		TierFailures:     copyCounts(c.tierFailures),
		TierAvgLatencyMs: make(map[string]float64, len(c.tierLatency)),
		RoutedDispatches: c.routedDispatches,
		FallbackRoutes:   c.fallbackRoutes,
		Escalations:      c.escalations,
		DispatchFaults:   c.dispatchFaults,
		EmptyInputs:      c.emptyInputs,
	}

	if c.totalRequests > 0 {
		snap.AvgLatencyMs = float64(c.totalLatency.Microseconds()) / float64(c.totalRequests) / 1000
	}
	lookups := c.cacheHits + c.cacheMisses
	if lookups > 0 {
		snap.CacheHitRate = float64(c.cacheHits) / float64(lookups)
	}
	for tier, total := range c.tierLatency {
		if attempts := c.tierAttempts[tier]; attempts > 0 {
			snap.TierAvgLatencyMs[tier] = float64(total.Microseconds()) / float64(attempts) / 1000
		}
	}

	return snap
}

// Summary returns a one-line human-readable summary.
func (c *Collector) Summary() string {
	snap := c.Snapshot()

	if snap.TotalRequests == 0 {
		return "No requests processed yet"
	}

	return fmt.Sprintf(
		"Requests: %d (%.0f%% cached) | routed: %d, fallback: %d, escalated: %d, faults: %d | avg %.1fms",
		snap.TotalRequests,
		snap.CacheHitRate*100,
		snap.RoutedDispatches,
		snap.FallbackRoutes,
		snap.Escalations,
		snap.DispatchFaults,
		snap.AvgLatencyMs,
	)
}

// Reset clears all counters.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests = 0
	c.totalLatency = 0
	c.cacheHits = 0
	c.cacheMisses = 0
	c.tierAttempts = make(map[string]int)
	c.tierAccepts = make(map[string]int)
	c.tierFailures = make(map[string]int)
	c.tierLatency = make(map[string]time.Duration)
	c.routedDispatches = 0
	c.fallbackRoutes = 0
	c.escalations = 0
	c.dispatchFaults = 0
	c.emptyInputs = 0
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
