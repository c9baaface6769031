// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/intentgate/internal/cache"
	"github.com/jeranaias/intentgate/internal/classify"
	"github.com/jeranaias/intentgate/internal/conversation"
	"github.com/jeranaias/intentgate/internal/dispatch"
	"github.com/jeranaias/intentgate/internal/fingerprint"
	"github.com/jeranaias/intentgate/internal/telemetry"
)

// =============================================================================
// REQUEST / DEPENDENCIES
// =============================================================================

// Request is the inbound contract: a raw message plus arbitrary context.
// Only allow-listed context keys influence the fingerprint; the
// conversation_id key additionally selects conversation state.
type Request struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Fingerprinter produces the deterministic cache key for a request.
type Fingerprinter interface {
	Fingerprint(message string, requestContext map[string]any) (string, error)
}

// Deps wires the router's collaborators. Cascade and Gate are required,
// everything else defaults when nil.
type Deps struct {
	Fingerprinter Fingerprinter
	Cache         *cache.ResultCache
	Cascade       *classify.Cascade
	Gate          *dispatch.Gate
	Stats         *telemetry.Collector
	Conversations *conversation.Store
}

// StatsView is the composite returned by GetStats.
type StatsView struct {
	Service             telemetry.Snapshot `json:"service"`
	Cache               cache.Stats        `json:"cache"`
	ActiveConversations int                `json:"active_conversations"`
}

// =============================================================================
// ROUTER
// =============================================================================

// Router drives a message through fingerprinting, the result cache, the
// classification cascade, and the dispatch gate.
type Router struct {
	fp            Fingerprinter
	cache         *cache.ResultCache
	cascade       *classify.Cascade
	gate          *dispatch.Gate
	stats         *telemetry.Collector
	conversations *conversation.Store
}

// New creates a router from explicit dependencies.
func New(deps Deps) (*Router, error) {
	if deps.Cascade == nil {
		return nil, fmt.Errorf("router: cascade is required")
	}
	if deps.Gate == nil {
		return nil, fmt.Errorf("router: gate is required")
	}
	if deps.Fingerprinter == nil {
		deps.Fingerprinter = fingerprint.New()
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(0, 0)
	}
	if deps.Stats == nil {
		deps.Stats = telemetry.NewCollector()
	}
	if deps.Conversations == nil {
		deps.Conversations = conversation.NewStore()
	}

	return &Router{
		fp:            deps.Fingerprinter,
		cache:         deps.Cache,
		cascade:       deps.Cascade,
		gate:          deps.Gate,
		stats:         deps.Stats,
		conversations: deps.Conversations,
	}, nil
}

// Route classifies and dispatches one message. It never returns an error:
// classification always terminates, the cache and fingerprinter fail open,
// and the gate converts its own faults into safe decisions.
func (r *Router) Route(ctx context.Context, req Request) dispatch.Decision {
	start := time.Now()
	requestID := uuid.NewString()

	convID := conversationID(req.Context)
	if convID != "" {
		r.conversations.Touch(convID)
	}

	// Fingerprint failures disable caching for this request only.
	fp, err := r.fp.Fingerprint(req.Message, req.Context)
	if err != nil {
		log.Printf("[router] request=%s fingerprint failed, classifying uncached: %v", requestID, err)
		fp = ""
	}

	result, cacheHit := r.lookupOrClassify(ctx, fp, req.Message)

	conv := r.conversations.ContextFor(convID)
	decision := r.gate.Decide(result, conv, req.Message)
	decision.CacheHit = cacheHit
	decision.RequestID = requestID
	decision.DurationMs = time.Since(start).Milliseconds()

	r.account(decision, convID, req.Message)
	r.stats.RecordRequest(time.Since(start))

	log.Printf("[router] request=%s intent=%s confidence=%.2f method=%s path=%s cache=%t duration=%dms",
		requestID, decision.Intent, decision.Confidence, decision.Method,
		decision.Path, decision.CacheHit, decision.DurationMs)

	return decision
}

// lookupOrClassify serves the classification from cache when possible and
// runs the cascade otherwise.
func (r *Router) lookupOrClassify(ctx context.Context, fp, message string) (classify.Result, bool) {
	if fp != "" {
		if result, ok := r.cache.Get(fp); ok {
			r.stats.RecordCacheHit()
			return result, true
		}
		r.stats.RecordCacheMiss()
	}

	result, trace := r.cascade.Classify(ctx, message)
	for _, attempt := range trace {
		r.stats.RecordTier(attempt.Tier, attempt.Accepted, attempt.Err != nil, attempt.Latency)
	}

	// Empty-input results are synthetic and never worth caching.
	if result.Method == classify.MethodEmptyInput {
		r.stats.RecordEmptyInput()
	} else if fp != "" {
		r.cache.Put(fp, result)
	}

	return result, false
}

// account updates per-path counters and conversation state.
func (r *Router) account(decision dispatch.Decision, convID, rawMessage string) {
	switch decision.Path {
	case dispatch.PathRouted:
		r.stats.RecordRouted()
	case dispatch.PathFallbackLowConfidence, dispatch.PathFallbackUnresolved:
		r.stats.RecordFallbackRoute()
	case dispatch.PathEscalated:
		r.stats.RecordEscalation()
		if convID != "" && r.gate.FrustrationHit(rawMessage) {
			r.conversations.MarkFrustrated(convID)
		}
	case dispatch.PathFault:
		r.stats.RecordDispatchFault()
		if convID != "" {
			r.conversations.IncrementError(convID)
		}
	}

	if convID != "" && decision.Path != dispatch.PathFault {
		r.conversations.RecordIntent(convID, decision.Intent)
	}
}

// =============================================================================
// ADMINISTRATIVE OPERATIONS
// =============================================================================

// GetStats returns the combined service, cache, and conversation view.
func (r *Router) GetStats() StatsView {
	return StatsView{
		Service:             r.stats.Snapshot(),
		Cache:               r.cache.Stats(),
		ActiveConversations: r.conversations.Len(),
	}
}

// ClearCache drops every cached classification.
func (r *Router) ClearCache() {
	r.cache.Clear()
	log.Printf("[router] cache cleared")
}

// ClearCacheFor invalidates the single entry a message+context pair maps
// to, by refingerprinting it.
func (r *Router) ClearCacheFor(message string, requestContext map[string]any) error {
	fp, err := r.fp.Fingerprint(message, requestContext)
	if err != nil {
		return fmt.Errorf("fingerprint for invalidation: %w", err)
	}
	r.cache.Invalidate(fp)
	return nil
}

// Conversations exposes the conversation store for callers that manage
// conversation lifecycle (resets, pruning).
func (r *Router) Conversations() *conversation.Store {
	return r.conversations
}

// conversationID extracts the allow-listed conversation id context value.
func conversationID(requestContext map[string]any) string {
	if requestContext == nil {
		return ""
	}
	v, ok := requestContext["conversation_id"]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
