// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides LRU caching with lazy TTL expiry for
// classification results, keyed by request fingerprint.
package cache

import (
	"log"
	"sync"
	"time"

	"github.com/jeranaias/intentgate/internal/classify"
)

// =============================================================================
// RESULT CACHE
// =============================================================================

// ResultCache is a fingerprint-keyed LRU cache for classification results.
// Entries expire lazily: an expired entry is removed the first time it is
// read, there is no background sweeper. All operations fail open, so a
// fault inside the cache degrades to a miss rather than a failed request.
type ResultCache struct {
	mu          sync.Mutex
	entries     map[string]*resultEntry
	maxEntries  int
	defaultTTL  time.Duration
	accessOrder []string // LRU eviction order, oldest first
	disabled    bool     // set at construction only

	// Statistics
	hits        int
	misses      int
	evictions   int
	expirations int
}

// resultEntry is a cached classification with its own expiry clock.
type resultEntry struct {
	Fingerprint string
	Result      classify.Result
	InsertedAt  time.Time
	AccessedAt  time.Time
	TTL         time.Duration
}

// Stats holds cache statistics.
type Stats struct {
	Entries     int     `json:"entries"`
	Hits        int     `json:"hits"`
	Misses      int     `json:"misses"`
	Evictions   int     `json:"evictions"`
	Expirations int     `json:"expirations"`
	HitRate     float64 `json:"hit_rate"`
}

// New creates a result cache with the given limits.
// maxEntries: maximum number of cached results (default: 1000)
// defaultTTL: lifetime of an entry unless overridden per put (default: 1h)
func New(maxEntries int, defaultTTL time.Duration) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &ResultCache{
		entries:     make(map[string]*resultEntry),
		maxEntries:  maxEntries,
		defaultTTL:  defaultTTL,
		accessOrder: make([]string, 0, maxEntries),
	}
}

// NewDisabled creates a pass-through cache: every Get misses, every Put is
// dropped, and statistics stay at zero. Used when caching is configured off,
// so callers never need a nil check.
func NewDisabled() *ResultCache {
	return &ResultCache{
		entries:  make(map[string]*resultEntry),
		disabled: true,
	}
}

// Get retrieves a live cached result for the fingerprint.
// An entry past its TTL is removed and reported as a miss.
func (rc *ResultCache) Get(fingerprint string) (result classify.Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[cache] recovered from panic in Get: %v", r)
			result, ok = classify.Result{}, false
		}
	}()

	if rc.disabled {
		return classify.Result{}, false
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	entry, found := rc.entries[fingerprint]
	if !found {
		rc.misses++
		return classify.Result{}, false
	}

	if time.Since(entry.InsertedAt) >= entry.TTL {
		rc.removeEntryLocked(fingerprint)
		rc.expirations++
		rc.misses++
		return classify.Result{}, false
	}

	// Cache hit - promote to most recently used
	entry.AccessedAt = time.Now()
	rc.updateAccessOrderLocked(fingerprint)
	rc.hits++

	return entry.Result, true
}

// Put stores a result under the fingerprint with the default TTL.
func (rc *ResultCache) Put(fingerprint string, result classify.Result) {
	rc.PutTTL(fingerprint, result, rc.defaultTTL)
}

// PutTTL stores a result with an explicit TTL. A non-positive ttl falls
// back to the default. Inserting into a full cache evicts exactly one
// entry, the least recently used one.
func (rc *ResultCache) PutTTL(fingerprint string, result classify.Result, ttl time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[cache] recovered from panic in Put: %v", r)
		}
	}()

	if rc.disabled || fingerprint == "" {
		return
	}
	if ttl <= 0 {
		ttl = rc.defaultTTL
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := time.Now()

	// Replace in place when the key already exists.
	if entry, ok := rc.entries[fingerprint]; ok {
		entry.Result = result
		entry.InsertedAt = now
		entry.AccessedAt = now
		entry.TTL = ttl
		rc.updateAccessOrderLocked(fingerprint)
		return
	}

	// Evict the single least recently used entry when at capacity.
	if len(rc.entries) >= rc.maxEntries && len(rc.accessOrder) > 0 {
		oldest := rc.accessOrder[0]
		rc.removeEntryLocked(oldest)
		rc.evictions++
	}

	rc.entries[fingerprint] = &resultEntry{
		Fingerprint: fingerprint,
		Result:      result,
		InsertedAt:  now,
		AccessedAt:  now,
		TTL:         ttl,
	}
	rc.updateAccessOrderLocked(fingerprint)
}

// Invalidate removes a single fingerprint from the cache. Removing an
// absent fingerprint is a no-op.
func (rc *ResultCache) Invalidate(fingerprint string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[cache] recovered from panic in Invalidate: %v", r)
		}
	}()

	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.removeEntryLocked(fingerprint)
}

// Clear removes all entries from the cache. Statistics survive.
func (rc *ResultCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.entries = make(map[string]*resultEntry)
	rc.accessOrder = make([]string, 0, rc.maxEntries)
}

// Len returns the current number of cached entries.
func (rc *ResultCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}

// Stats returns cache statistics.
func (rc *ResultCache) Stats() Stats {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	hitRate := 0.0
	total := rc.hits + rc.misses
	if total > 0 {
		hitRate = float64(rc.hits) / float64(total)
	}

	return Stats{
		Entries:     len(rc.entries),
		Hits:        rc.hits,
		Misses:      rc.misses,
		Evictions:   rc.evictions,
		Expirations: rc.expirations,
		HitRate:     hitRate,
	}
}

// removeEntryLocked removes an entry (must hold lock).
func (rc *ResultCache) removeEntryLocked(fingerprint string) {
	if _, ok := rc.entries[fingerprint]; !ok {
		return
	}

	delete(rc.entries, fingerprint)

	for i, fp := range rc.accessOrder {
		if fp == fingerprint {
			rc.accessOrder = append(rc.accessOrder[:i], rc.accessOrder[i+1:]...)
			break
		}
	}
}

// updateAccessOrderLocked moves the fingerprint to the MRU end (must hold lock).
func (rc *ResultCache) updateAccessOrderLocked(fingerprint string) {
	for i, fp := range rc.accessOrder {
		if fp == fingerprint {
			rc.accessOrder = append(rc.accessOrder[:i], rc.accessOrder[i+1:]...)
			break
		}
	}
	rc.accessOrder = append(rc.accessOrder, fingerprint)
}
