// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fingerprint

import (
	"encoding/hex"
	"testing"
)

// =============================================================================
// NORMALIZATION TESTS
// =============================================================================

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Hello", "hello"},
		{"trim", "  hello  ", "hello"},
		{"collapse internal whitespace", "hello   world", "hello world"},
		{"tabs and newlines", "hello\t\nworld", "hello world"},
		{"empty", "", ""},
		{"whitespace only", "   \t\n  ", ""},
		{"nfkc fullwidth", "Ｈｅｌｌｏ", "hello"},
		{"mixed case long", "Where IS my ORDER", "where is my order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMessage(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeMessage(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// =============================================================================
// DETERMINISM TESTS
// =============================================================================

func TestFingerprintNormalizationEquivalence(t *testing.T) {
	f := New()

	a, err := f.Fingerprint("Hello", map[string]any{"language": "en"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	b, err := f.Fingerprint("  hello  ", map[string]any{"language": "en"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if a != b {
		t.Errorf("Normalized-equal messages produced different fingerprints:\n  %s\n  %s", a, b)
	}
}

func TestFingerprintContextSensitivity(t *testing.T) {
	f := New()

	en, err := f.Fingerprint("Hello", map[string]any{"language": "en"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	es, err := f.Fingerprint("Hello", map[string]any{"language": "es"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if en == es {
		t.Error("Different allow-listed context values must produce different fingerprints")
	}
}

func TestFingerprintIgnoresNonAllowListedKeys(t *testing.T) {
	f := New()

	base, err := f.Fingerprint("hello", map[string]any{"language": "en"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	noisy, err := f.Fingerprint("hello", map[string]any{
		"language":   "en",
		"session_id": "abc-123",
		"timestamp":  1712345678,
	})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if base != noisy {
		t.Error("Non-allow-listed context keys must not influence the fingerprint")
	}
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	f := New()
	ctx := map[string]any{"language": "en", "customer_tier": "gold"}

	first, err := f.Fingerprint("where is my order", ctx)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	for i := 0; i < 50; i++ {
		again, err := f.Fingerprint("where is my order", ctx)
		if err != nil {
			t.Fatalf("Fingerprint failed on iteration %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("Fingerprint changed on iteration %d", i)
		}
	}
}

func TestFingerprintValueTypeCoercion(t *testing.T) {
	f := New()

	asString, err := f.Fingerprint("hello", map[string]any{"customer_tier": "2"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	asInt, err := f.Fingerprint("hello", map[string]any{"customer_tier": 2})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if asString != asInt {
		t.Error("Semantically equal context values of different types must hash identically")
	}
}

// =============================================================================
// OUTPUT FORMAT TESTS
// =============================================================================

func TestFingerprintFixedLength(t *testing.T) {
	f := New()

	messages := []string{
		"",
		"hi",
		"a much longer message that goes on and on and describes a complicated problem in detail",
	}

	for _, msg := range messages {
		fp, err := f.Fingerprint(msg, nil)
		if err != nil {
			t.Fatalf("Fingerprint(%q) failed: %v", msg, err)
		}
		if len(fp) != 64 {
			t.Errorf("Fingerprint(%q) length = %d, want 64", msg, len(fp))
		}
		if _, err := hex.DecodeString(fp); err != nil {
			t.Errorf("Fingerprint(%q) is not valid hex: %v", msg, err)
		}
	}
}

func TestFingerprintNoPrefixCollisions(t *testing.T) {
	f := New()

	short, err := f.Fingerprint("my order number is 12345", nil)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	long, err := f.Fingerprint("my order number is 12345 and it still has not arrived", nil)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if short == long {
		t.Error("Messages sharing a prefix must not collide")
	}
}

func TestFingerprintEmptyMessage(t *testing.T) {
	f := New()

	fp, err := f.Fingerprint("   ", map[string]any{"language": "en"})
	if err != nil {
		t.Fatalf("Whitespace-only message must still fingerprint: %v", err)
	}
	if len(fp) != 64 {
		t.Errorf("Expected 64-char digest for empty message, got %d", len(fp))
	}
}

func TestCustomAllowList(t *testing.T) {
	f := NewWithAllowList([]string{"region"})

	a, err := f.Fingerprint("hello", map[string]any{"region": "us", "language": "en"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	b, err := f.Fingerprint("hello", map[string]any{"region": "us", "language": "fr"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	c, err := f.Fingerprint("hello", map[string]any{"region": "eu", "language": "en"})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if a != b {
		t.Error("language is not allow-listed here and must not affect the digest")
	}
	if a == c {
		t.Error("region is allow-listed here and must affect the digest")
	}
}
