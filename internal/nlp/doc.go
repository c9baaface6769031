// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nlp implements the on-device secondary classification tier.
//
// Messages are embedded locally with a small sentence-transformer model
// (Hugot over ONNX Runtime, with a pure Go fallback backend) and matched
// against per-intent centroids built from the catalog's example utterances.
// No network calls, no external services.
//
// The package degrades gracefully: when the embedding model is not installed
// the embedder fails to construct, the classifier is simply not wired, and
// the cascade skips straight from the generative tier to keyword matching.
package nlp
