// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classify implements the cascading intent classifier.
//
// Three tiers run in strict cost/trust order for each message: a heavyweight
// generative classifier behind a bounded deadline, a lightweight on-device
// NLP classifier behind a capability check, and a deterministic keyword
// matcher that never fails. A tier fault or sub-threshold confidence falls
// through silently to the next tier; the keyword tier's guaranteed result
// means classification always terminates with a well-formed outcome, no
// matter how degraded the upstream tiers are.
//
// Empty or whitespace-only messages bypass every tier and produce a fixed
// low-confidence result that callers are expected not to cache.
package classify
