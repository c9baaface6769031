// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// This package implements the client used by the primary classification
// tier. Requests go to /api/generate with JSON-constrained output and low
// temperature so that replies stay machine-parseable.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - ClientConfig: connection, retry, and sampling settings
//   - GenerateRequest: request structure for single completions
//   - GenerateResponse: response structure with output and timing metrics
//   - ClientError: typed error with an ErrorType for dispatching on failures
//
// # Usage
//
// Create a client and request a classification reply:
//
//	client := ollama.NewClient()
//	if err := client.CheckRunning(ctx); err != nil {
//	    // primary tier unavailable, cascade falls through
//	}
//	reply, err := client.Generate(ctx, systemPrompt, userMessage)
//
// # Failure Handling
//
// Transient failures (connection refused, 5xx) are retried with a fixed
// delay up to MaxRetries. Missing models and malformed requests fail
// immediately. All requests pass through a shared rate limiter so bursts
// of classification traffic do not monopolize the local server.
package ollama
