// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/intentgate/internal/fingerprint"
	"github.com/jeranaias/intentgate/internal/intent"
)

// =============================================================================
// TIER NAMES
// =============================================================================

const (
	TierPrimary   = "primary"
	TierSecondary = "secondary"
	TierKeyword   = "keyword"
)

// Keyword tier scoring constants. Each matched keyword contributes a fixed
// weight; the score is capped to reflect the tier's lower trust. A message
// with no keyword match at all gets the fixed fallback confidence.
const (
	keywordMatchWeight       = 0.3
	keywordConfidenceCap     = 0.7
	keywordFallbackConfidence = 0.4
)

// =============================================================================
// CASCADE CONFIGURATION
// =============================================================================

// CascadeConfig holds the per-tier acceptance thresholds and the primary
// call deadline. Thresholds encode a trust ordering across tiers
// (primary 0.6, secondary 0.4, keyword capped at 0.7); the scales are not
// mutually calibrated and are not meant to be.
type CascadeConfig struct {
	// PrimaryAcceptThreshold is the minimum confidence to accept a primary
	// tier result (default 0.6).
	PrimaryAcceptThreshold float64

	// SecondaryAcceptThreshold is the minimum confidence to accept a
	// secondary tier result (default 0.4).
	SecondaryAcceptThreshold float64

	// PrimaryTimeout bounds the generative call (default 5s).
	PrimaryTimeout time.Duration
}

// DefaultCascadeConfig returns the default thresholds.
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		PrimaryAcceptThreshold:   0.6,
		SecondaryAcceptThreshold: 0.4,
		PrimaryTimeout:           5 * time.Second,
	}
}

// fillDefaults replaces zero values with defaults.
func (c *CascadeConfig) fillDefaults() {
	defaults := DefaultCascadeConfig()
	if c.PrimaryAcceptThreshold <= 0 {
		c.PrimaryAcceptThreshold = defaults.PrimaryAcceptThreshold
	}
	if c.SecondaryAcceptThreshold <= 0 {
		c.SecondaryAcceptThreshold = defaults.SecondaryAcceptThreshold
	}
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = defaults.PrimaryTimeout
	}
}

// =============================================================================
// CASCADE
// =============================================================================

// Cascade runs the three ordered classification tiers for one message at a
// time: primary (generative), secondary (on-device NLP), tertiary (keyword).
// Tiers run strictly sequentially; a tier fault or low-confidence result
// falls through to the next tier, and the keyword tier always produces a
// well-formed result, so classification terminates under any combination of
// upstream failures.
//
// Either classifier dependency may be nil; a nil tier is skipped the same
// way an unavailable one is.
type Cascade struct {
	cfg       CascadeConfig
	primary   PrimaryClassifier
	secondary SecondaryClassifier
	catalog   *intent.Catalog
}

// NewCascade builds a cascade over the given tiers and intent catalog.
func NewCascade(cfg CascadeConfig, primary PrimaryClassifier, secondary SecondaryClassifier, catalog *intent.Catalog) *Cascade {
	cfg.fillDefaults()
	if catalog == nil {
		catalog = intent.Default()
	}
	return &Cascade{
		cfg:       cfg,
		primary:   primary,
		secondary: secondary,
		catalog:   catalog,
	}
}

// Classify runs the tiers in order until one accepts. The returned trace
// records every tier attempted, whether it accepted, the recovered fault if
// any, and per-tier latency. Classify never returns an error: the keyword
// tier guarantees a result.
func (c *Cascade) Classify(ctx context.Context, message string) (Result, TierTrace) {
	if strings.TrimSpace(message) == "" {
		return emptyInputResult(), nil
	}

	trace := make(TierTrace, 0, 3)

	// TIER 1: heavyweight generative classifier.
	start := time.Now()
	outcome, err := c.tryPrimary(ctx, message)
	trace = append(trace, TierAttempt{
		Tier:     TierPrimary,
		Accepted: outcome.accepted,
		Err:      err,
		Latency:  time.Since(start),
	})
	if err != nil {
		log.Printf("[classify] primary tier fell through: %v", err)
	}
	if outcome.accepted {
		return outcome.result, trace
	}

	// TIER 2: lightweight on-device classifier.
	start = time.Now()
	outcome, err = c.trySecondary(message)
	trace = append(trace, TierAttempt{
		Tier:     TierSecondary,
		Accepted: outcome.accepted,
		Err:      err,
		Latency:  time.Since(start),
	})
	if err != nil && !errors.Is(err, ErrTierUnavailable) {
		log.Printf("[classify] secondary tier fell through: %v", err)
	}
	if outcome.accepted {
		return outcome.result, trace
	}

	// TIER 3: deterministic keyword matcher. Never fails, always accepted.
	start = time.Now()
	result := c.runKeyword(message)
	trace = append(trace, TierAttempt{
		Tier:     TierKeyword,
		Accepted: true,
		Latency:  time.Since(start),
	})
	return result, trace
}

// =============================================================================
// PRIMARY TIER
// =============================================================================

// tryPrimary calls the generative classifier under a bounded deadline. Any
// timeout, transport failure, or schema violation is a tier fault, not a
// low-confidence result.
func (c *Cascade) tryPrimary(ctx context.Context, message string) (tierOutcome, error) {
	if c.primary == nil {
		return fellThrough(), fmt.Errorf("%w: no primary classifier wired", ErrTierUnavailable)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.PrimaryTimeout)
	defer cancel()

	reply, err := c.primary.Generate(callCtx, c.systemPrompt(), message)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return fellThrough(), fmt.Errorf("%w after %s: %v", ErrTierTimeout, c.cfg.PrimaryTimeout, err)
		}
		return fellThrough(), fmt.Errorf("%w: %v", ErrTierCallFailure, err)
	}

	parsed, err := parsePrimaryReply(reply)
	if err != nil {
		return fellThrough(), err
	}

	result := Result{
		Intent:     strings.ToLower(strings.TrimSpace(parsed.Intent)),
		Confidence: clampConfidence(parsed.Confidence),
		Entities:   parsed.Entities,
		Method:     MethodPrimary,
		Reasoning:  parsed.Reasoning,
	}

	// An intent outside the catalog is forced to fallback with a confidence
	// below the accept threshold, so the normal threshold check below causes
	// the fall-through. Recovery happens inside the tier, not above it.
	if !c.catalog.Contains(result.Intent) {
		forced := c.cfg.PrimaryAcceptThreshold - 0.2
		if forced < 0 {
			forced = 0
		}
		result = Result{
			Intent:     intent.Fallback,
			Confidence: forced,
			Method:     MethodPrimary,
			Reasoning:  fmt.Sprintf("model produced unknown intent %q", parsed.Intent),
		}
	}

	if result.Confidence >= c.cfg.PrimaryAcceptThreshold {
		c.attachHandler(&result)
		return accepted(result), nil
	}
	return fellThrough(), nil
}

// systemPrompt assembles the minimal instruction block for the generative
// tier: the output contract plus the catalog's intent names and
// descriptions.
func (c *Cascade) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You classify customer support messages into exactly one intent.\n")
	b.WriteString("Respond with a single JSON object: ")
	b.WriteString(`{"intent": "...", "confidence": 0.0, "entities": {}, "reasoning": "..."}`)
	b.WriteString("\nValid intents:\n")
	for _, d := range c.catalog.Definitions() {
		b.WriteString("- ")
		b.WriteString(d.Name)
		if d.Description != "" {
			b.WriteString(": ")
			b.WriteString(d.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// SECONDARY TIER
// =============================================================================

// trySecondary consults the capability check first: an absent or unavailable
// secondary is a modeled skip, which keeps "not installed" distinguishable
// from "installed but broken" on the trace.
func (c *Cascade) trySecondary(message string) (tierOutcome, error) {
	if c.secondary == nil {
		return fellThrough(), fmt.Errorf("%w: no secondary classifier wired", ErrTierUnavailable)
	}
	if !c.secondary.Available() {
		return fellThrough(), fmt.Errorf("%w: secondary classifier reports unavailable", ErrTierUnavailable)
	}

	result, err := c.secondary.Analyze(message)
	if err != nil {
		return fellThrough(), fmt.Errorf("%w: %v", ErrTierCallFailure, err)
	}

	result.Intent = strings.ToLower(strings.TrimSpace(result.Intent))
	result.Confidence = clampConfidence(result.Confidence)
	result.Method = MethodSecondary

	if !c.catalog.Contains(result.Intent) {
		return fellThrough(), fmt.Errorf("%w: secondary produced unknown intent %q", ErrMalformedOutput, result.Intent)
	}

	if result.Confidence >= c.cfg.SecondaryAcceptThreshold {
		c.attachHandler(&result)
		return accepted(result), nil
	}
	return fellThrough(), nil
}

// =============================================================================
// KEYWORD TIER
// =============================================================================

// runKeyword scores every catalog intent by the number of its keywords found
// in the normalized message. Confidence is matches times a fixed weight,
// capped to reflect the tier's lower trust. Ties go to the first-defined
// intent. No match at all yields the fixed keyword fallback. This tier
// cannot fail.
func (c *Cascade) runKeyword(message string) Result {
	normalized := fingerprint.NormalizeMessage(message)

	bestIntent := ""
	bestMatches := 0
	for _, d := range c.catalog.Definitions() {
		matches := 0
		for _, kw := range d.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(normalized, strings.ToLower(kw)) {
				matches++
			}
		}
		if matches > bestMatches {
			bestMatches = matches
			bestIntent = d.Name
		}
	}

	if bestMatches == 0 {
		return Result{
			Intent:     intent.Fallback,
			Confidence: keywordFallbackConfidence,
			Method:     MethodKeywordFallback,
			Reasoning:  "no keyword matches, using fallback intent",
		}
	}

	confidence := float64(bestMatches) * keywordMatchWeight
	if confidence > keywordConfidenceCap {
		confidence = keywordConfidenceCap
	}

	result := Result{
		Intent:     bestIntent,
		Confidence: confidence,
		Method:     MethodKeyword,
		Reasoning:  fmt.Sprintf("matched %d keyword(s) for %s", bestMatches, bestIntent),
	}
	c.attachHandler(&result)
	return result
}

// =============================================================================
// HELPERS
// =============================================================================

// attachHandler records the catalog's suggested handler on the result. The
// dispatch gate makes the final routing call.
func (c *Cascade) attachHandler(r *Result) {
	if handler, ok := c.catalog.HandlerFor(r.Intent); ok {
		r.TargetHandlerID = handler
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
