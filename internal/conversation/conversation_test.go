// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStoreTouchCreatesAndReuses(t *testing.T) {
	s := NewStore()

	id := s.Touch("")
	if id == "" {
		t.Fatal("Touch must generate an id for new conversations")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	// Touching the same id does not create a second conversation.
	got := s.Touch(id)
	if got != id {
		t.Errorf("Touch returned %s, want %s", got, id)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d after re-touch, want 1", s.Len())
	}

	// Distinct generated ids never collide.
	other := s.Touch("")
	if other == id {
		t.Error("Generated ids must be unique")
	}
}

func TestStoreErrorCountLifecycle(t *testing.T) {
	s := NewStore()
	id := s.Touch("conv-1")

	if n := s.IncrementError(id); n != 1 {
		t.Errorf("IncrementError = %d, want 1", n)
	}
	if n := s.IncrementError(id); n != 2 {
		t.Errorf("IncrementError = %d, want 2", n)
	}

	ctx := s.ContextFor(id)
	if ctx.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", ctx.ErrorCount)
	}

	s.Reset(id)
	ctx = s.ContextFor(id)
	if ctx.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d after Reset, want 0", ctx.ErrorCount)
	}

	// Unknown conversations are a no-op.
	if n := s.IncrementError("ghost"); n != 0 {
		t.Errorf("IncrementError on unknown conversation = %d, want 0", n)
	}
}

func TestStoreFrustrationMarker(t *testing.T) {
	s := NewStore()
	id := s.Touch("conv-1")

	if s.ContextFor(id).FrustrationDetected {
		t.Error("New conversation must not be frustrated")
	}

	s.MarkFrustrated(id)
	if !s.ContextFor(id).FrustrationDetected {
		t.Error("MarkFrustrated must be visible in the context view")
	}

	s.Reset(id)
	if s.ContextFor(id).FrustrationDetected {
		t.Error("Reset must clear the frustration marker")
	}
}

func TestStoreRecordIntentHistory(t *testing.T) {
	s := NewStore()
	id := s.Touch("conv-1")

	s.RecordIntent(id, "greeting")
	s.RecordIntent(id, "order_status")

	state, ok := s.Get(id)
	if !ok {
		t.Fatal("Conversation disappeared")
	}
	if state.LastIntent != "order_status" {
		t.Errorf("LastIntent = %s, want order_status", state.LastIntent)
	}
	if state.Turns != 2 {
		t.Errorf("Turns = %d, want 2", state.Turns)
	}
	if len(state.PriorIntents) != 2 || state.PriorIntents[0] != "greeting" {
		t.Errorf("PriorIntents = %v", state.PriorIntents)
	}
}

func TestStoreHistoryCapped(t *testing.T) {
	s := NewStore()
	id := s.Touch("conv-1")

	for i := 0; i < priorIntentsMax+10; i++ {
		s.RecordIntent(id, fmt.Sprintf("intent-%d", i))
	}

	ctx := s.ContextFor(id)
	if len(ctx.PriorIntents) != priorIntentsMax {
		t.Errorf("History length = %d, want %d", len(ctx.PriorIntents), priorIntentsMax)
	}
	// Oldest entries are dropped first.
	if ctx.PriorIntents[len(ctx.PriorIntents)-1] != fmt.Sprintf("intent-%d", priorIntentsMax+9) {
		t.Errorf("Newest intent missing: %v", ctx.PriorIntents)
	}
}

func TestStoreContextIsACopy(t *testing.T) {
	s := NewStore()
	id := s.Touch("conv-1")
	s.RecordIntent(id, "greeting")

	ctx := s.ContextFor(id)
	ctx.PriorIntents[0] = "mutated"
	ctx.ErrorCount = 99

	fresh := s.ContextFor(id)
	if fresh.PriorIntents[0] != "greeting" {
		t.Error("Mutating a context view must not affect the store")
	}
	if fresh.ErrorCount != 0 {
		t.Error("Mutating a context view must not affect the store")
	}
}

func TestStoreUnknownConversationZeroContext(t *testing.T) {
	s := NewStore()

	ctx := s.ContextFor("never-seen")
	if ctx.ErrorCount != 0 || ctx.FrustrationDetected || len(ctx.PriorIntents) != 0 {
		t.Errorf("Unknown conversation must gate as first contact, got %+v", ctx)
	}
}

func TestStorePruneIdle(t *testing.T) {
	s := NewStore()
	idle := s.Touch("idle-conv")
	s.Touch("active-conv")

	// Backdate the idle conversation.
	s.mu.Lock()
	s.convs[idle].LastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	pruned := s.PruneIdle(30 * time.Minute)
	if pruned != 1 {
		t.Errorf("PruneIdle = %d, want 1", pruned)
	}
	if _, ok := s.Get("idle-conv"); ok {
		t.Error("Idle conversation should have been evicted")
	}
	if _, ok := s.Get("active-conv"); !ok {
		t.Error("Active conversation must survive")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := s.Touch(fmt.Sprintf("conv-%d", n%3))
			for j := 0; j < 50; j++ {
				s.RecordIntent(id, "greeting")
				s.IncrementError(id)
				s.ContextFor(id)
				if j%10 == 0 {
					s.Reset(id)
				}
			}
		}(i)
	}

	wg.Wait()

	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
}
