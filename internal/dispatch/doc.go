// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch turns classification results into routing decisions.
//
// The gate applies two layers of policy. Escalation comes first and is
// absolute: conversations over the retry limit, always-escalate intents,
// and frustrated customers go straight to a human regardless of how
// confident the classifier was. Everything else passes through a strict
// confidence gate before the intent's handler is resolved.
//
// Decide never fails. Internal faults are recovered at the boundary and
// come back as safe fallback decisions carrying the fault path marker.
package dispatch
