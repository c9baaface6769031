// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/intentgate/internal/classify"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testResult(intentName string) classify.Result {
	return classify.Result{
		Intent:     intentName,
		Confidence: 0.9,
		Method:     classify.MethodPrimary,
	}
}

// =============================================================================
// BASIC OPERATIONS TESTS
// =============================================================================

func TestNewResultCache(t *testing.T) {
	tests := []struct {
		name            string
		maxEntries      int
		ttl             time.Duration
		expectedEntries int
		expectedTTL     time.Duration
	}{
		{
			name:            "default values when zero",
			maxEntries:      0,
			ttl:             0,
			expectedEntries: 1000,
			expectedTTL:     time.Hour,
		},
		{
			name:            "default values when negative",
			maxEntries:      -5,
			ttl:             -time.Second,
			expectedEntries: 1000,
			expectedTTL:     time.Hour,
		},
		{
			name:            "custom values",
			maxEntries:      50,
			ttl:             10 * time.Minute,
			expectedEntries: 50,
			expectedTTL:     10 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.maxEntries, tt.ttl)
			if c.maxEntries != tt.expectedEntries {
				t.Errorf("Expected maxEntries=%d, got %d", tt.expectedEntries, c.maxEntries)
			}
			if c.defaultTTL != tt.expectedTTL {
				t.Errorf("Expected defaultTTL=%v, got %v", tt.expectedTTL, c.defaultTTL)
			}
			if c.entries == nil {
				t.Error("Entries map not initialized")
			}
			if c.accessOrder == nil {
				t.Error("Access order not initialized")
			}
		})
	}
}

func TestResultCacheBasicOperations(t *testing.T) {
	c := New(10, time.Minute)

	// Miss on empty cache
	result, hit := c.Get("fp-1")
	if hit {
		t.Error("Expected cache miss on empty cache")
	}
	if result.Intent != "" {
		t.Error("Expected zero result on cache miss")
	}

	// Put then hit
	c.Put("fp-1", testResult("greeting"))
	result, hit = c.Get("fp-1")
	if !hit {
		t.Fatal("Expected cache hit after Put")
	}
	if result.Intent != "greeting" {
		t.Errorf("Intent = %s, want greeting", result.Intent)
	}
	if result.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", result.Confidence)
	}

	// Replace in place keeps a single entry
	c.Put("fp-1", testResult("complaint"))
	if c.Len() != 1 {
		t.Errorf("Len = %d after replace, want 1", c.Len())
	}
	result, _ = c.Get("fp-1")
	if result.Intent != "complaint" {
		t.Errorf("Intent = %s after replace, want complaint", result.Intent)
	}
}

func TestResultCacheEmptyFingerprintIgnored(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("", testResult("greeting"))
	if c.Len() != 0 {
		t.Error("Empty fingerprint must not be stored")
	}
}

func TestDisabledCacheNeverStores(t *testing.T) {
	c := NewDisabled()

	c.Put("fp-1", testResult("greeting"))
	if c.Len() != 0 {
		t.Errorf("Disabled cache stored an entry, Len() = %d", c.Len())
	}

	if _, ok := c.Get("fp-1"); ok {
		t.Error("Disabled cache returned a hit")
	}

	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Disabled cache counted traffic: %+v", stats)
	}
}

// =============================================================================
// LRU EVICTION TESTS
// =============================================================================

func TestResultCacheEvictsExactlyOne(t *testing.T) {
	c := New(3, time.Minute)

	c.Put("fp-1", testResult("a"))
	c.Put("fp-2", testResult("b"))
	c.Put("fp-3", testResult("c"))
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}

	// One more insert evicts exactly the oldest entry.
	c.Put("fp-4", testResult("d"))
	if c.Len() != 3 {
		t.Errorf("Len = %d after overflow insert, want 3", c.Len())
	}
	if _, hit := c.Get("fp-1"); hit {
		t.Error("fp-1 should have been evicted as least recently used")
	}
	for _, fp := range []string{"fp-2", "fp-3", "fp-4"} {
		if _, hit := c.Get(fp); !hit {
			t.Errorf("%s should have survived the eviction", fp)
		}
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestResultCacheHitProtectsFromEviction(t *testing.T) {
	c := New(3, time.Minute)

	c.Put("fp-1", testResult("a"))
	c.Put("fp-2", testResult("b"))
	c.Put("fp-3", testResult("c"))

	// Touch the oldest entry so fp-2 becomes the eviction candidate.
	if _, hit := c.Get("fp-1"); !hit {
		t.Fatal("fp-1 should be present")
	}

	c.Put("fp-4", testResult("d"))

	if _, hit := c.Get("fp-1"); !hit {
		t.Error("fp-1 was promoted on hit and must survive")
	}
	if _, hit := c.Get("fp-2"); hit {
		t.Error("fp-2 was least recently used and must be evicted")
	}
}

func TestResultCacheReplaceDoesNotEvict(t *testing.T) {
	c := New(2, time.Minute)

	c.Put("fp-1", testResult("a"))
	c.Put("fp-2", testResult("b"))

	// Updating an existing key at capacity must not evict anything.
	c.Put("fp-1", testResult("a2"))

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, hit := c.Get("fp-2"); !hit {
		t.Error("fp-2 must survive a replace of fp-1")
	}
	if c.Stats().Evictions != 0 {
		t.Errorf("Evictions = %d, want 0", c.Stats().Evictions)
	}
}

// =============================================================================
// TTL EXPIRY TESTS
// =============================================================================

func TestResultCacheTTLExpiry(t *testing.T) {
	c := New(10, time.Minute)

	c.PutTTL("fp-1", testResult("greeting"), 150*time.Millisecond)

	// Just before expiry the entry is served.
	time.Sleep(30 * time.Millisecond)
	if _, hit := c.Get("fp-1"); !hit {
		t.Fatal("Entry should be live before its TTL elapses")
	}

	// Just after expiry it is gone and purged.
	time.Sleep(200 * time.Millisecond)
	if _, hit := c.Get("fp-1"); hit {
		t.Error("Entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry must be purged, Len = %d", c.Len())
	}

	stats := c.Stats()
	if stats.Expirations != 1 {
		t.Errorf("Expirations = %d, want 1", stats.Expirations)
	}
}

func TestResultCacheReplaceRefreshesTTL(t *testing.T) {
	c := New(10, time.Minute)

	c.PutTTL("fp-1", testResult("greeting"), 250*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	// Rewriting the key restarts its expiry clock.
	c.PutTTL("fp-1", testResult("greeting"), 250*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	if _, hit := c.Get("fp-1"); !hit {
		t.Error("Replace must refresh the insertion time")
	}
}

func TestResultCachePutTTLNonPositiveUsesDefault(t *testing.T) {
	c := New(10, time.Minute)
	c.PutTTL("fp-1", testResult("greeting"), 0)

	c.mu.Lock()
	entry := c.entries["fp-1"]
	c.mu.Unlock()

	if entry == nil {
		t.Fatal("Entry not stored")
	}
	if entry.TTL != time.Minute {
		t.Errorf("TTL = %v, want the default %v", entry.TTL, time.Minute)
	}
}

// =============================================================================
// INVALIDATION TESTS
// =============================================================================

func TestResultCacheInvalidate(t *testing.T) {
	c := New(10, time.Minute)

	c.Put("fp-1", testResult("greeting"))
	c.Put("fp-2", testResult("complaint"))

	c.Invalidate("fp-1")
	if _, hit := c.Get("fp-1"); hit {
		t.Error("fp-1 should be gone after Invalidate")
	}
	if _, hit := c.Get("fp-2"); !hit {
		t.Error("fp-2 must not be affected")
	}

	// Invalidating an absent key is a no-op.
	c.Invalidate("fp-1")
	c.Invalidate("never-existed")
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestResultCacheClear(t *testing.T) {
	c := New(10, time.Minute)

	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("fp-%d", i), testResult("greeting"))
	}
	c.Get("fp-0")

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", c.Len())
	}
	// Statistics survive a clear.
	if c.Stats().Hits != 1 {
		t.Errorf("Hits = %d after Clear, want 1", c.Stats().Hits)
	}

	// Cache remains usable.
	c.Put("fp-new", testResult("greeting"))
	if _, hit := c.Get("fp-new"); !hit {
		t.Error("Cache must be usable after Clear")
	}
}

// =============================================================================
// STATISTICS TESTS
// =============================================================================

func TestResultCacheStats(t *testing.T) {
	c := New(10, time.Minute)

	c.Get("missing")
	c.Put("fp-1", testResult("greeting"))
	c.Get("fp-1")
	c.Get("fp-1")
	c.Get("also-missing")

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("Misses = %d, want 2", stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("Entries = %d, want 1", stats.Entries)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
}

// =============================================================================
// FAIL-OPEN TESTS
// =============================================================================

func TestResultCacheFailOpen(t *testing.T) {
	c := New(10, time.Minute)

	// Sabotage the internal map. Writes to a nil map panic; the cache must
	// swallow that and keep serving misses rather than crash the caller.
	c.entries = nil

	c.Put("fp-1", testResult("greeting"))

	if _, hit := c.Get("fp-1"); hit {
		t.Error("Broken cache must degrade to misses")
	}
	c.Invalidate("fp-1")
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestResultCacheConcurrentAccess(t *testing.T) {
	c := New(100, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				fp := fmt.Sprintf("fp-%d-%d", n, j%20)
				c.Put(fp, testResult("greeting"))
				c.Get(fp)
				if j%10 == 0 {
					c.Invalidate(fp)
				}
			}
		}(i)
	}

	wg.Wait()

	// Internal bookkeeping must stay consistent.
	c.mu.Lock()
	if len(c.entries) != len(c.accessOrder) {
		t.Errorf("entries (%d) and accessOrder (%d) out of sync", len(c.entries), len(c.accessOrder))
	}
	c.mu.Unlock()
}
