// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router orchestrates the full path of a message:
// fingerprint -> result cache -> classification cascade -> dispatch gate.
//
// # Key Types
//
//   - Router: the orchestrator, built from explicit dependencies
//   - Request: inbound message plus context map
//   - StatsView: combined service, cache, and conversation statistics
//
// # Usage
//
// Create a router and route a message:
//
//	r, err := router.New(router.Deps{
//	    Cascade: cascade,
//	    Gate:    gate,
//	})
//	decision := r.Route(ctx, router.Request{
//	    Message: "where is my order?",
//	    Context: map[string]any{"conversation_id": "c-42"},
//	})
//	if decision.Escalate {
//	    // hand the conversation to a human
//	}
//
// Route never returns an error. Fingerprinting and caching fail open,
// classification always terminates via the keyword tier, and the gate
// converts internal faults into safe fallback decisions. The decision's
// Path field says which of those things happened.
package router
