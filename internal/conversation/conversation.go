// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation tracks per-conversation state the dispatch gate
// reads: error counts, frustration markers, and intent history.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// priorIntentsMax bounds the intent history kept per conversation.
const priorIntentsMax = 20

// =============================================================================
// CONTEXT VIEW
// =============================================================================

// Context is the read-only slice of conversation state the gate consumes.
// The classification core never mutates it.
type Context struct {
	ErrorCount          int      `json:"error_count"`
	FrustrationDetected bool     `json:"frustration_detected"`
	PriorIntents        []string `json:"prior_intents,omitempty"`
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// State is the mutable per-conversation record held by the store.
type State struct {
	ID           string    `json:"id"`
	ErrorCount   int       `json:"error_count"`
	Frustrated   bool      `json:"frustrated"`
	PriorIntents []string  `json:"prior_intents,omitempty"`
	LastIntent   string    `json:"last_intent,omitempty"`
	Turns        int       `json:"turns"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Store is an in-process conversation state store.
type Store struct {
	mu    sync.Mutex
	convs map[string]*State
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{
		convs: make(map[string]*State),
	}
}

// Touch ensures a conversation exists and bumps its activity timestamp.
// An empty id starts a fresh conversation with a generated UUID.
// Returns the effective conversation id.
func (s *Store) Touch(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	state, ok := s.convs[id]
	if !ok {
		state = &State{
			ID:        id,
			StartedAt: now,
		}
		s.convs[id] = state
	}
	state.LastActivity = now
	return id
}

// Get returns a copy of the conversation state.
func (s *Store) Get(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.convs[id]
	if !ok {
		return State{}, false
	}
	return copyState(state), true
}

// ContextFor returns the read-only context view for the gate. Unknown
// conversations yield a zero context, which gates as a first contact.
func (s *Store) ContextFor(id string) Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.convs[id]
	if !ok {
		return Context{}
	}

	return Context{
		ErrorCount:          state.ErrorCount,
		FrustrationDetected: state.Frustrated,
		PriorIntents:        append([]string(nil), state.PriorIntents...),
	}
}

// RecordIntent appends a resolved intent to the conversation history and
// counts the turn. History is capped at the most recent entries.
func (s *Store) RecordIntent(id, intentName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.convs[id]
	if !ok {
		return
	}

	state.LastIntent = intentName
	state.Turns++
	state.PriorIntents = append(state.PriorIntents, intentName)
	if len(state.PriorIntents) > priorIntentsMax {
		state.PriorIntents = state.PriorIntents[len(state.PriorIntents)-priorIntentsMax:]
	}
	state.LastActivity = time.Now()
}

// IncrementError bumps the conversation's error count and returns the new
// value. Unknown conversations return 0.
func (s *Store) IncrementError(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.convs[id]
	if !ok {
		return 0
	}
	state.ErrorCount++
	return state.ErrorCount
}

// MarkFrustrated flags the conversation so later turns keep escalating.
func (s *Store) MarkFrustrated(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.convs[id]; ok {
		state.Frustrated = true
	}
}

// Reset clears the error count and frustration marker, keeping history.
// Used after a human agent resolves the conversation.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.convs[id]; ok {
		state.ErrorCount = 0
		state.Frustrated = false
	}
}

// PruneIdle evicts conversations idle longer than maxIdle and returns how
// many were removed.
func (s *Store) PruneIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	pruned := 0
	for id, state := range s.convs {
		if state.LastActivity.Before(cutoff) {
			delete(s.convs, id)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of tracked conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

func copyState(state *State) State {
	out := *state
	out.PriorIntents = append([]string(nil), state.PriorIntents...)
	return out
}
