// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package intent defines the catalog of intents the classifier can produce.
//
// The catalog is the single source of truth consumed by every tier: the
// generative tier receives intent names and descriptions in its prompt, the
// on-device tier builds embedding centroids from per-intent example
// utterances, and the keyword tier scores messages against per-intent
// keyword sets. The catalog also backs the default handler registry used by
// the dispatch gate.
//
// Intent names are lowercase and stable. The name "fallback" is reserved for
// the low-trust default route and cannot be defined in the catalog.
package intent
