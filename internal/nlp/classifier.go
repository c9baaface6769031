// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nlp

import (
	"fmt"
	"math"
	"strings"

	"github.com/jeranaias/intentgate/internal/classify"
	"github.com/jeranaias/intentgate/internal/intent"
)

// =============================================================================
// CENTROID CLASSIFIER
// =============================================================================

// Classifier assigns intents by embedding the message and comparing it
// against one centroid per intent. Centroids are the mean embedding of the
// catalog's example utterances, computed once at construction so Analyze does
// a single model call per message.
//
// Confidence is the raw cosine similarity to the nearest centroid, clamped
// to [0, 1]. The cascade applies its own acceptance threshold on top.
type Classifier struct {
	embedder  Embedder
	centroids []centroid
}

// centroid is the mean embedding of one intent's example utterances.
// Centroid order follows catalog order so similarity ties resolve the same
// way keyword ties do.
type centroid struct {
	intent   string
	examples int
	vector   []float32
}

// NewClassifier embeds every example utterance in the catalog and builds the
// per-intent centroids. Intents without examples are skipped. Fails if the
// embedder errors or no intent has examples to learn from.
func NewClassifier(embedder Embedder, catalog *intent.Catalog) (*Classifier, error) {
	if embedder == nil {
		return nil, fmt.Errorf("classifier requires an embedder")
	}
	if catalog == nil {
		catalog = intent.Default()
	}

	c := &Classifier{embedder: embedder}

	for _, d := range catalog.Definitions() {
		if len(d.Examples) == 0 {
			continue
		}

		vectors := make([][]float32, 0, len(d.Examples))
		for _, example := range d.Examples {
			vec, err := embedder.Embed(example)
			if err != nil {
				return nil, fmt.Errorf("embedding example for intent %q: %w", d.Name, err)
			}
			vectors = append(vectors, vec)
		}

		mean, err := meanVector(vectors)
		if err != nil {
			return nil, fmt.Errorf("building centroid for intent %q: %w", d.Name, err)
		}

		c.centroids = append(c.centroids, centroid{
			intent:   d.Name,
			examples: len(vectors),
			vector:   mean,
		})
	}

	if len(c.centroids) == 0 {
		return nil, fmt.Errorf("no intent examples to build centroids from")
	}

	return c, nil
}

// Available reports whether the classifier can analyze messages right now.
func (c *Classifier) Available() bool {
	return c.embedder != nil && c.embedder.Ready() && len(c.centroids) > 0
}

// Analyze embeds the message and returns the intent of the nearest centroid.
func (c *Classifier) Analyze(message string) (classify.Result, error) {
	vec, err := c.embedder.Embed(strings.TrimSpace(message))
	if err != nil {
		return classify.Result{}, fmt.Errorf("embedding message: %w", err)
	}

	best := c.centroids[0]
	bestSim := CosineSimilarity(vec, best.vector)
	for _, cand := range c.centroids[1:] {
		if sim := CosineSimilarity(vec, cand.vector); sim > bestSim {
			best = cand
			bestSim = sim
		}
	}

	confidence := bestSim
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return classify.Result{
		Intent:     best.intent,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("nearest centroid %q (similarity %.2f over %d examples)", best.intent, bestSim, best.examples),
	}, nil
}

// =============================================================================
// VECTOR MATH
// =============================================================================

// CosineSimilarity calculates similarity between two float32 vectors.
// Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// meanVector averages the vectors component-wise. All vectors must share one
// dimension.
func meanVector(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to average")
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(v), dim)
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}

	mean := make([]float32, dim)
	for i, s := range sum {
		mean[i] = float32(s / float64(len(vectors)))
	}
	return mean, nil
}
