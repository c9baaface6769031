// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fingerprint derives deterministic cache keys from classification
// requests.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// ALLOW LIST
// =============================================================================

// AllowedContextKeys are the only context fields that participate in the
// fingerprint. Everything else in the request context (session tokens, raw
// timestamps, client metadata) would poison cache keys with per-request
// noise.
var AllowedContextKeys = []string{
	"language",
	"customer_tier",
	"conversation_id",
	"channel",
}

// =============================================================================
// FINGERPRINTER
// =============================================================================

// Fingerprinter produces fixed-length, deterministic digests for
// classification requests. Digests are stable across process restarts: the
// derivation uses no salt and no process state, so a warm external cache
// primed by one run stays valid for the next.
type Fingerprinter struct {
	allowed map[string]bool
}

// New returns a fingerprinter using the default context allow list.
func New() *Fingerprinter {
	return NewWithAllowList(AllowedContextKeys)
}

// NewWithAllowList returns a fingerprinter that consults only the given
// context keys.
func NewWithAllowList(keys []string) *Fingerprinter {
	allowed := make(map[string]bool, len(keys))
	for _, k := range keys {
		allowed[strings.ToLower(strings.TrimSpace(k))] = true
	}
	return &Fingerprinter{allowed: allowed}
}

// payload is the canonical structure that gets hashed. JCS canonicalization
// makes the JSON byte-stable regardless of map iteration order.
type payload struct {
	Message string            `json:"message"`
	Context map[string]string `json:"context"`
}

// Fingerprint returns the hex digest for message plus the allow-listed
// subset of ctx. The message is Unicode-normalized, lowercased, and
// whitespace-collapsed before hashing; the full content participates, so
// long messages sharing a prefix never collide by truncation.
func (f *Fingerprinter) Fingerprint(message string, ctx map[string]any) (string, error) {
	p := payload{
		Message: NormalizeMessage(message),
		Context: f.selectContext(ctx),
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("fingerprint encode: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint canonicalize: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// selectContext keeps only allow-listed keys, stringifying values so
// semantically equal contexts hash identically regardless of the caller's
// value types.
func (f *Fingerprinter) selectContext(ctx map[string]any) map[string]string {
	selected := make(map[string]string)
	for key, value := range ctx {
		normKey := strings.ToLower(strings.TrimSpace(key))
		if !f.allowed[normKey] {
			continue
		}
		if value == nil {
			continue
		}
		selected[normKey] = fmt.Sprintf("%v", value)
	}
	return selected
}

// NormalizeMessage applies NFKC normalization, lowercases, and collapses
// whitespace runs to single spaces. "Hello" and "  hello  " normalize to the
// same string; fullwidth and compatibility forms fold to their canonical
// equivalents.
func NormalizeMessage(message string) string {
	normalized := norm.NFKC.String(message)
	normalized = strings.ToLower(normalized)
	return strings.Join(strings.Fields(normalized), " ")
}
