// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classify runs the cascading intent classification tiers.
package classify

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// METHOD CONSTANTS
// =============================================================================

// Method values record which tier produced a result. Cached copies keep the
// originating method; a cache hit is reported on the dispatch decision, not
// by rewriting the method.
const (
	MethodPrimary         = "primary"
	MethodSecondary       = "secondary"
	MethodKeyword         = "keyword"
	MethodKeywordFallback = "keyword_fallback"
	MethodEmptyInput      = "empty_input"
)

// =============================================================================
// TIER ERROR TAXONOMY
// =============================================================================

// Tier faults are recovered inside the cascade and recorded on the trace.
// They cause silent fall-through to the next tier and are never surfaced to
// callers.
var (
	// ErrTierUnavailable marks a tier that is not wired or reports itself
	// unavailable via its capability check.
	ErrTierUnavailable = errors.New("tier unavailable")

	// ErrTierTimeout marks a tier call that exceeded its deadline.
	ErrTierTimeout = errors.New("tier timed out")

	// ErrTierCallFailure marks a transport or adapter failure.
	ErrTierCallFailure = errors.New("tier call failed")

	// ErrMalformedOutput marks tier output that failed parsing or schema
	// validation.
	ErrMalformedOutput = errors.New("malformed tier output")
)

// =============================================================================
// RESULT TYPE
// =============================================================================

// Result is an immutable classification outcome. Confidence values are
// tier-relative trust scores, not calibrated probabilities: the tiers use
// deliberately different scales (see CascadeConfig).
type Result struct {
	// Intent is the detected intent name, always a member of the catalog or
	// the reserved fallback.
	Intent string `json:"intent"`

	// Confidence in [0,1], on the producing tier's own scale.
	Confidence float64 `json:"confidence"`

	// Entities extracted alongside the intent, when the tier provides any.
	Entities map[string]string `json:"entities,omitempty"`

	// Method names the tier that produced this result.
	Method string `json:"method"`

	// TargetHandlerID is the catalog's suggested handler for the intent.
	// The dispatch gate has the final say.
	TargetHandlerID string `json:"target_handler_id,omitempty"`

	// Reasoning is a short human-readable explanation for observability.
	Reasoning string `json:"reasoning,omitempty"`
}

// emptyInputResult is returned when the message is empty or whitespace-only.
// It bypasses every tier and is never cached.
func emptyInputResult() Result {
	return Result{
		Intent:     "fallback",
		Confidence: 0.1,
		Method:     MethodEmptyInput,
		Reasoning:  "empty message, skipped classification",
	}
}

// =============================================================================
// TIER OUTCOME
// =============================================================================

// tierOutcome is the tagged result of one tier attempt: either the tier
// accepted with a result, or it fell through. Modeling this explicitly keeps
// each tier transition independently testable instead of burying the policy
// in nested conditionals.
type tierOutcome struct {
	accepted bool
	result   Result
}

func accepted(r Result) tierOutcome {
	return tierOutcome{accepted: true, result: r}
}

func fellThrough() tierOutcome {
	return tierOutcome{}
}

// =============================================================================
// TIER TRACE
// =============================================================================

// TierAttempt records one tier's participation in a classification pass.
type TierAttempt struct {
	// Tier is the tier name: primary, secondary, or keyword.
	Tier string

	// Accepted is true when this tier's result was taken.
	Accepted bool

	// Err is the recovered tier fault, nil on acceptance or clean
	// fall-through (low confidence).
	Err error

	// Latency is how long the tier attempt took.
	Latency time.Duration
}

// TierTrace is the ordered list of tier attempts for one classification.
type TierTrace []TierAttempt

// =============================================================================
// EXTERNAL COLLABORATOR INTERFACES
// =============================================================================

// PrimaryClassifier is the heavyweight generative tier. Generate returns the
// model's raw text reply; the cascade bounds the call with a deadline and
// validates the reply against the classification schema.
type PrimaryClassifier interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SecondaryClassifier is the lightweight on-device tier. Available is a
// capability check consulted before every Analyze call; an unavailable
// secondary is skipped, not treated as a failure.
type SecondaryClassifier interface {
	Available() bool
	Analyze(message string) (Result, error)
}
