// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"fmt"
	"log"
	"strings"

	"github.com/jeranaias/intentgate/internal/classify"
	"github.com/jeranaias/intentgate/internal/conversation"
)

// =============================================================================
// DECISION
// =============================================================================

// Decision path markers. The router uses these to pick counters and to
// decide when a conversation's error count must grow.
const (
	// PathRouted means the intent's own handler takes the message.
	PathRouted = "routed"
	// PathFallbackLowConfidence means the confidence gate diverted the
	// message to the fallback handler.
	PathFallbackLowConfidence = "fallback_low_confidence"
	// PathFallbackUnresolved means the registry had no handler for the
	// intent.
	PathFallbackUnresolved = "fallback_unresolved"
	// PathFault means an internal fault was converted into a safe
	// fallback decision.
	PathFault = "fallback_fault"
	// PathEscalated means automated handling ended and a human takes over.
	PathEscalated = "escalated"
)

// Decision is the terminal outcome for one message. Exactly one is
// produced per request and nothing downstream mutates it.
type Decision struct {
	TargetHandlerID string  `json:"target_handler_id"`
	Intent          string  `json:"intent"`
	Confidence      float64 `json:"confidence"`
	Escalate        bool    `json:"escalate"`
	Reasoning       string  `json:"reasoning"`
	Method          string  `json:"method"`
	Path            string  `json:"path"`
	CacheHit        bool    `json:"cache_hit"`
	RequestID       string  `json:"request_id,omitempty"`
	DurationMs      int64   `json:"duration_ms"`
}

// HandlerRegistry resolves an intent name to a handler id. The catalog's
// registry implements this; callers may substitute their own.
type HandlerRegistry interface {
	Resolve(intentName string) (string, error)
}

// =============================================================================
// GATE CONFIGURATION
// =============================================================================

// GateConfig controls escalation and confidence gating.
type GateConfig struct {
	// ConfidenceThreshold rejects results at or below this confidence.
	// The comparison is inclusive: a result exactly at the threshold is
	// untrusted. Zero means use the default (0.7).
	ConfidenceThreshold float64

	// MaxRetries is the error count at which a conversation escalates
	// regardless of classification quality (default: 2).
	MaxRetries int

	// FrustrationKeywords escalate when found in the raw message,
	// case-insensitive substring match.
	FrustrationKeywords []string

	// FallbackHandlerID receives low-confidence and faulted traffic.
	FallbackHandlerID string

	// EscalationHandlerID receives escalated traffic.
	EscalationHandlerID string
}

// DefaultGateConfig returns the default gate configuration.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ConfidenceThreshold: 0.7,
		MaxRetries:          2,
		FrustrationKeywords: DefaultFrustrationKeywords(),
		FallbackHandlerID:   "fallback-handler",
		EscalationHandlerID: "escalation-handler",
	}
}

// DefaultFrustrationKeywords returns the built-in frustration phrase list.
func DefaultFrustrationKeywords() []string {
	return []string{
		"frustrated",
		"angry",
		"furious",
		"ridiculous",
		"useless",
		"terrible",
		"worst",
		"speak to a human",
		"talk to a person",
		"real person",
		"human agent",
	}
}

func (c *GateConfig) fillDefaults() {
	def := DefaultGateConfig()
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		c.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.FrustrationKeywords == nil {
		c.FrustrationKeywords = def.FrustrationKeywords
	}
	if c.FallbackHandlerID == "" {
		c.FallbackHandlerID = def.FallbackHandlerID
	}
	if c.EscalationHandlerID == "" {
		c.EscalationHandlerID = def.EscalationHandlerID
	}
}

// =============================================================================
// DISPATCH GATE
// =============================================================================

// Gate converts classification results into dispatch decisions. It sits in
// the hot path of every message, so it never returns an error and never
// lets a panic escape.
type Gate struct {
	cfg            GateConfig
	registry       HandlerRegistry
	alwaysEscalate map[string]bool
	keywords       []string // lowercased frustration keywords
}

// NewGate creates a dispatch gate. alwaysEscalate lists intents that end
// automated handling no matter how confident the classifier was.
func NewGate(cfg GateConfig, registry HandlerRegistry, alwaysEscalate []string) *Gate {
	cfg.fillDefaults()

	escalateSet := make(map[string]bool, len(alwaysEscalate))
	for _, name := range alwaysEscalate {
		escalateSet[strings.ToLower(strings.TrimSpace(name))] = true
	}

	keywords := make([]string, 0, len(cfg.FrustrationKeywords))
	for _, kw := range cfg.FrustrationKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return &Gate{
		cfg:            cfg,
		registry:       registry,
		alwaysEscalate: escalateSet,
		keywords:       keywords,
	}
}

// Decide produces the dispatch decision for a classified message.
//
// Escalation outranks everything else: a conversation over the retry
// limit, an always-escalate intent, a frustration phrase in the raw
// message, or a previously frustrated conversation all end automated
// handling immediately. Below that, results at or under the confidence
// threshold divert to the fallback handler with the original intent and
// confidence preserved.
func (g *Gate) Decide(result classify.Result, conv conversation.Context, rawMessage string) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[dispatch] recovered from panic in Decide: %v", r)
			decision = Decision{
				TargetHandlerID: g.cfg.FallbackHandlerID,
				Intent:          result.Intent,
				Confidence:      result.Confidence,
				Escalate:        false,
				Reasoning:       "internal dispatch fault, routed to fallback",
				Method:          result.Method,
				Path:            PathFault,
			}
		}
	}()

	if cause, ok := g.escalationCause(result, conv, rawMessage); ok {
		return Decision{
			TargetHandlerID: g.cfg.EscalationHandlerID,
			Intent:          result.Intent,
			Confidence:      result.Confidence,
			Escalate:        true,
			Reasoning:       cause,
			Method:          result.Method,
			Path:            PathEscalated,
		}
	}

	if result.Confidence <= g.cfg.ConfidenceThreshold {
		return Decision{
			TargetHandlerID: g.cfg.FallbackHandlerID,
			Intent:          result.Intent,
			Confidence:      result.Confidence,
			Escalate:        false,
			Reasoning: fmt.Sprintf("confidence %.2f at or below threshold %.2f",
				result.Confidence, g.cfg.ConfidenceThreshold),
			Method: result.Method,
			Path:   PathFallbackLowConfidence,
		}
	}

	handlerID, err := g.resolveHandler(result)
	if err != nil {
		return Decision{
			TargetHandlerID: g.cfg.FallbackHandlerID,
			Intent:          result.Intent,
			Confidence:      result.Confidence,
			Escalate:        false,
			Reasoning:       fmt.Sprintf("no handler for intent %q, routed to fallback", result.Intent),
			Method:          result.Method,
			Path:            PathFallbackUnresolved,
		}
	}

	return Decision{
		TargetHandlerID: handlerID,
		Intent:          result.Intent,
		Confidence:      result.Confidence,
		Escalate:        false,
		Reasoning:       result.Reasoning,
		Method:          result.Method,
		Path:            PathRouted,
	}
}

// escalationCause reports whether the message must escalate and why.
func (g *Gate) escalationCause(result classify.Result, conv conversation.Context, rawMessage string) (string, bool) {
	if conv.ErrorCount >= g.cfg.MaxRetries {
		return fmt.Sprintf("error count %d reached retry limit %d", conv.ErrorCount, g.cfg.MaxRetries), true
	}
	if g.alwaysEscalate[strings.ToLower(result.Intent)] {
		return fmt.Sprintf("intent %q always escalates", result.Intent), true
	}
	if kw, ok := g.frustrationMatch(rawMessage); ok {
		return fmt.Sprintf("frustration phrase %q detected", kw), true
	}
	if conv.FrustrationDetected {
		return "conversation previously flagged as frustrated", true
	}
	return "", false
}

// FrustrationHit reports whether the raw message contains a configured
// frustration phrase. The router uses this to persist the frustration
// marker on the conversation.
func (g *Gate) FrustrationHit(rawMessage string) bool {
	_, ok := g.frustrationMatch(rawMessage)
	return ok
}

// frustrationMatch scans the raw message for a frustration phrase.
func (g *Gate) frustrationMatch(rawMessage string) (string, bool) {
	if rawMessage == "" || len(g.keywords) == 0 {
		return "", false
	}
	lowered := strings.ToLower(rawMessage)
	for _, kw := range g.keywords {
		if strings.Contains(lowered, kw) {
			return kw, true
		}
	}
	return "", false
}

// resolveHandler maps the result's intent to a handler id, preferring the
// id already resolved at classification time.
func (g *Gate) resolveHandler(result classify.Result) (string, error) {
	if result.TargetHandlerID != "" {
		return result.TargetHandlerID, nil
	}
	if g.registry == nil {
		return "", fmt.Errorf("no handler registry configured")
	}
	return g.registry.Resolve(result.Intent)
}
