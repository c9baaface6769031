// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fingerprint derives deterministic cache keys from a message and
// the allow-listed subset of its request context.
//
// Derivation pipeline: NFKC-normalize and lowercase the message, collapse
// whitespace, select allow-listed context keys, serialize to RFC 8785
// canonical JSON, and hash with SHA-256. The result is a fixed-length hex
// digest with no salt, stable across process restarts.
package fingerprint
