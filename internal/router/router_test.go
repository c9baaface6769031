// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jeranaias/intentgate/internal/cache"
	"github.com/jeranaias/intentgate/internal/classify"
	"github.com/jeranaias/intentgate/internal/dispatch"
	"github.com/jeranaias/intentgate/internal/intent"
	"github.com/jeranaias/intentgate/internal/telemetry"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// countingPrimary answers every message with a fixed high-confidence intent
// and counts invocations, so tests can prove the cache short-circuits tiers.
type countingPrimary struct {
	intent string
	calls  int
}

func (p *countingPrimary) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	p.calls++
	return fmt.Sprintf(`{"intent": %q, "confidence": 0.95}`, p.intent), nil
}

// failingFingerprinter simulates a broken digest pipeline.
type failingFingerprinter struct{}

func (failingFingerprinter) Fingerprint(string, map[string]any) (string, error) {
	return "", errors.New("digest backend unavailable")
}

// panicRegistry forces the gate's fault path.
type panicRegistry struct{}

func (panicRegistry) Resolve(string) (string, error) {
	panic("registry corrupted")
}

type fixture struct {
	router  *Router
	primary *countingPrimary
	stats   *telemetry.Collector
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()

	catalog := intent.Default()
	primary := &countingPrimary{intent: "order_status"}
	cascade := classify.NewCascade(classify.DefaultCascadeConfig(), primary, nil, catalog)

	registry, err := intent.NewRegistry(catalog, "fallback-handler")
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	gate := dispatch.NewGate(dispatch.DefaultGateConfig(), registry, catalog.AlwaysEscalateSet())

	stats := telemetry.NewCollector()
	deps := Deps{
		Cache:   cache.New(10, 0),
		Cascade: cascade,
		Gate:    gate,
		Stats:   stats,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	r, err := New(deps)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &fixture{router: r, primary: primary, stats: stats}
}

// =============================================================================
// CONSTRUCTION TESTS
// =============================================================================

func TestNewRequiresCascadeAndGate(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New must reject missing cascade")
	}

	cascade := classify.NewCascade(classify.DefaultCascadeConfig(), nil, nil, nil)
	if _, err := New(Deps{Cascade: cascade}); err == nil {
		t.Error("New must reject missing gate")
	}

	gate := dispatch.NewGate(dispatch.DefaultGateConfig(), nil, nil)
	r, err := New(Deps{Cascade: cascade, Gate: gate})
	if err != nil {
		t.Fatalf("New with cascade and gate failed: %v", err)
	}
	if r.cache == nil || r.stats == nil || r.conversations == nil || r.fp == nil {
		t.Error("Optional dependencies must be defaulted")
	}
}

// =============================================================================
// CACHING BEHAVIOR TESTS
// =============================================================================

func TestRouteSecondIdenticalRequestServedFromCache(t *testing.T) {
	f := newFixture(t)
	req := Request{
		Message: "Where is my order?",
		Context: map[string]any{"language": "en"},
	}

	first := f.router.Route(context.Background(), req)
	if first.CacheHit {
		t.Error("First request cannot be a cache hit")
	}
	if f.primary.calls != 1 {
		t.Fatalf("Primary calls = %d after first request, want 1", f.primary.calls)
	}

	second := f.router.Route(context.Background(), req)
	if !second.CacheHit {
		t.Error("Second identical request must be served from cache")
	}
	if f.primary.calls != 1 {
		t.Errorf("Primary calls = %d after cached request, want 1 (no tier invoked)", f.primary.calls)
	}

	// The decision payload is identical apart from per-request metadata.
	if second.Intent != first.Intent || second.Confidence != first.Confidence ||
		second.Method != first.Method || second.TargetHandlerID != first.TargetHandlerID {
		t.Errorf("Cached decision diverged: first=%+v second=%+v", first, second)
	}
	if second.RequestID == first.RequestID {
		t.Error("Each request must get its own id")
	}
}

func TestRouteNormalizedMessageHitsSameEntry(t *testing.T) {
	f := newFixture(t)

	f.router.Route(context.Background(), Request{
		Message: "Hello there",
		Context: map[string]any{"language": "en"},
	})
	decision := f.router.Route(context.Background(), Request{
		Message: "  hello THERE  ",
		Context: map[string]any{"language": "en"},
	})

	if !decision.CacheHit {
		t.Error("Case and whitespace variants must share a cache entry")
	}
	if f.primary.calls != 1 {
		t.Errorf("Primary calls = %d, want 1", f.primary.calls)
	}
}

func TestRouteDifferentContextMissesCache(t *testing.T) {
	f := newFixture(t)

	f.router.Route(context.Background(), Request{
		Message: "hello",
		Context: map[string]any{"language": "en"},
	})
	decision := f.router.Route(context.Background(), Request{
		Message: "hello",
		Context: map[string]any{"language": "es"},
	})

	if decision.CacheHit {
		t.Error("Different allow-listed context must not share a cache entry")
	}
	if f.primary.calls != 2 {
		t.Errorf("Primary calls = %d, want 2", f.primary.calls)
	}
}

func TestRouteFingerprintFailureFailsOpen(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Fingerprinter = failingFingerprinter{}
	})
	req := Request{Message: "where is my order"}

	first := f.router.Route(context.Background(), req)
	second := f.router.Route(context.Background(), req)

	if first.CacheHit || second.CacheHit {
		t.Error("Broken fingerprinter must disable caching, not break routing")
	}
	if f.primary.calls != 2 {
		t.Errorf("Primary calls = %d, want 2 (classification each time)", f.primary.calls)
	}
	if first.Intent != "order_status" {
		t.Errorf("Intent = %s, want order_status", first.Intent)
	}
}

func TestRouteEmptyInputNotCached(t *testing.T) {
	f := newFixture(t)

	decision := f.router.Route(context.Background(), Request{Message: "   "})

	if decision.Intent != intent.Fallback {
		t.Errorf("Intent = %s, want fallback", decision.Intent)
	}
	if decision.Method != classify.MethodEmptyInput {
		t.Errorf("Method = %s, want empty_input", decision.Method)
	}
	// Confidence 0.1 sits under the gate threshold.
	if decision.Path != dispatch.PathFallbackLowConfidence {
		t.Errorf("Path = %s, want fallback_low_confidence", decision.Path)
	}

	view := f.router.GetStats()
	if view.Cache.Entries != 0 {
		t.Errorf("Cache entries = %d, empty input must not be cached", view.Cache.Entries)
	}
	if view.Service.EmptyInputs != 1 {
		t.Errorf("EmptyInputs = %d, want 1", view.Service.EmptyInputs)
	}
}

// =============================================================================
// ADMIN OPERATION TESTS
// =============================================================================

func TestClearCacheForInvalidatesSingleEntry(t *testing.T) {
	f := newFixture(t)

	reqA := Request{Message: "where is my order", Context: map[string]any{"language": "en"}}
	reqB := Request{Message: "I want a refund", Context: map[string]any{"language": "en"}}

	f.router.Route(context.Background(), reqA)
	f.router.Route(context.Background(), reqB)

	if err := f.router.ClearCacheFor(reqA.Message, reqA.Context); err != nil {
		t.Fatalf("ClearCacheFor failed: %v", err)
	}

	// reqA reclassifies, reqB still hits.
	if d := f.router.Route(context.Background(), reqA); d.CacheHit {
		t.Error("Invalidated entry must not hit")
	}
	if d := f.router.Route(context.Background(), reqB); !d.CacheHit {
		t.Error("Untouched entry must still hit")
	}
}

func TestClearCacheDropsEverything(t *testing.T) {
	f := newFixture(t)

	f.router.Route(context.Background(), Request{Message: "hello"})
	f.router.Route(context.Background(), Request{Message: "refund please"})

	f.router.ClearCache()

	if got := f.router.GetStats().Cache.Entries; got != 0 {
		t.Errorf("Cache entries = %d after ClearCache, want 0", got)
	}
	if d := f.router.Route(context.Background(), Request{Message: "hello"}); d.CacheHit {
		t.Error("Cleared cache must not serve hits")
	}
}

func TestGetStatsAggregatesComponents(t *testing.T) {
	f := newFixture(t)

	req := Request{Message: "where is my order", Context: map[string]any{"conversation_id": "c-1"}}
	f.router.Route(context.Background(), req)
	f.router.Route(context.Background(), req)

	view := f.router.GetStats()
	if view.Service.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", view.Service.TotalRequests)
	}
	if view.Service.CacheHits != 1 || view.Service.CacheMisses != 1 {
		t.Errorf("Cache hit/miss = %d/%d, want 1/1", view.Service.CacheHits, view.Service.CacheMisses)
	}
	if view.Service.TierAttempts[classify.TierPrimary] != 1 {
		t.Errorf("Primary attempts = %d, want 1", view.Service.TierAttempts[classify.TierPrimary])
	}
	if view.Service.RoutedDispatches != 2 {
		t.Errorf("RoutedDispatches = %d, want 2", view.Service.RoutedDispatches)
	}
	if view.ActiveConversations != 1 {
		t.Errorf("ActiveConversations = %d, want 1", view.ActiveConversations)
	}
}

// =============================================================================
// CONVERSATION STATE TESTS
// =============================================================================

func TestRouteEscalatesAfterRepeatedFaults(t *testing.T) {
	// Handlerless catalog: classification leaves handler resolution
	// entirely to the registry, and this registry panics on every call.
	catalog, err := intent.NewCatalog([]intent.Definition{
		{Name: "order_status", Keywords: []string{"order"}},
	}, nil)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	primary := &countingPrimary{intent: "order_status"}
	cascade := classify.NewCascade(classify.DefaultCascadeConfig(), primary, nil, catalog)
	gate := dispatch.NewGate(dispatch.DefaultGateConfig(), panicRegistry{}, nil)

	r, err := New(Deps{Cascade: cascade, Gate: gate})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	convCtx := map[string]any{"conversation_id": "conv-err"}

	first := r.Route(context.Background(), Request{Message: "order one", Context: convCtx})
	if first.Path != dispatch.PathFault {
		t.Fatalf("Path = %s, want fault", first.Path)
	}
	second := r.Route(context.Background(), Request{Message: "order two", Context: convCtx})
	if second.Path != dispatch.PathFault {
		t.Fatalf("Path = %s, want fault", second.Path)
	}

	// Two faults push the error count to the retry limit; the next turn
	// escalates before any confidence or resolution logic runs.
	third := r.Route(context.Background(), Request{Message: "order three", Context: convCtx})
	if !third.Escalate {
		t.Errorf("Third turn must escalate after two faults, got path %s", third.Path)
	}

	view := r.GetStats()
	if view.Service.DispatchFaults != 2 {
		t.Errorf("DispatchFaults = %d, want 2", view.Service.DispatchFaults)
	}
	if view.Service.Escalations != 1 {
		t.Errorf("Escalations = %d, want 1", view.Service.Escalations)
	}
}

func TestRouteFrustrationPersistsAcrossTurns(t *testing.T) {
	f := newFixture(t)
	convCtx := map[string]any{"conversation_id": "conv-angry"}

	first := f.router.Route(context.Background(), Request{
		Message: "this is ridiculous, where is my order",
		Context: convCtx,
	})
	if !first.Escalate {
		t.Fatal("Frustration phrase must escalate")
	}

	// A polite follow-up still escalates, the conversation is flagged.
	second := f.router.Route(context.Background(), Request{
		Message: "ok what about my order now",
		Context: convCtx,
	})
	if !second.Escalate {
		t.Error("Flagged conversation must keep escalating")
	}
}

func TestRouteRecordsIntentHistory(t *testing.T) {
	f := newFixture(t)
	convCtx := map[string]any{"conversation_id": "conv-hist"}

	f.router.Route(context.Background(), Request{Message: "where is my order", Context: convCtx})
	f.router.Route(context.Background(), Request{Message: "order number two", Context: convCtx})

	state, ok := f.router.Conversations().Get("conv-hist")
	if !ok {
		t.Fatal("Conversation not tracked")
	}
	if state.Turns != 2 {
		t.Errorf("Turns = %d, want 2", state.Turns)
	}
	if state.LastIntent != "order_status" {
		t.Errorf("LastIntent = %s, want order_status", state.LastIntent)
	}
}

// =============================================================================
// DECISION METADATA TESTS
// =============================================================================

func TestRouteDecisionMetadata(t *testing.T) {
	f := newFixture(t)

	decision := f.router.Route(context.Background(), Request{Message: "where is my order"})

	if decision.RequestID == "" {
		t.Error("RequestID must be assigned")
	}
	if decision.DurationMs < 0 {
		t.Errorf("DurationMs = %d, want >= 0", decision.DurationMs)
	}
	if decision.Path != dispatch.PathRouted {
		t.Errorf("Path = %s, want routed", decision.Path)
	}
	if decision.TargetHandlerID != "order-status-handler" {
		t.Errorf("TargetHandlerID = %s", decision.TargetHandlerID)
	}
}
