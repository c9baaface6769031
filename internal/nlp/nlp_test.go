// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nlp

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/jeranaias/intentgate/internal/intent"
)

// fakeEmbedder returns canned vectors keyed by exact text. Unknown texts get
// the fallback vector.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	ready    bool
	err      error
	calls    int
}

func (f *fakeEmbedder) Embed(text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) Ready() bool { return f.ready }

// testCatalog returns two intents whose examples live on different axes, so
// nearest-centroid outcomes are unambiguous.
func testCatalog(t *testing.T) *intent.Catalog {
	t.Helper()
	catalog, err := intent.NewCatalog([]intent.Definition{
		{
			Name:     "billing",
			Handler:  "billing-handler",
			Examples: []string{"my invoice is wrong", "question about my bill"},
		},
		{
			Name:     "greeting",
			Handler:  "greeting-handler",
			Examples: []string{"hi there", "hello"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return catalog
}

func testEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		ready: true,
		vectors: map[string][]float32{
			"my invoice is wrong":    {1, 0, 0},
			"question about my bill": {1, 0, 0},
			"hi there":               {0, 1, 0},
			"hello":                  {0, 1, 0},
		},
		fallback: []float32{0, 0, 1},
	}
}

// =============================================================================
// CONSTRUCTION TESTS
// =============================================================================

func TestNewClassifier_BuildsCentroids(t *testing.T) {
	embedder := testEmbedder()

	classifier, err := NewClassifier(embedder, testCatalog(t))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	if len(classifier.centroids) != 2 {
		t.Fatalf("centroids = %d, want 2", len(classifier.centroids))
	}

	if classifier.centroids[0].intent != "billing" {
		t.Errorf("centroids[0].intent = %q, want billing (catalog order)", classifier.centroids[0].intent)
	}

	if embedder.calls != 4 {
		t.Errorf("embedder calls = %d, want 4 (one per example)", embedder.calls)
	}
}

func TestNewClassifier_SkipsIntentsWithoutExamples(t *testing.T) {
	catalog, err := intent.NewCatalog([]intent.Definition{
		{Name: "billing", Examples: []string{"my invoice is wrong"}},
		{Name: "unknown_topic"},
	}, nil)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}

	classifier, err := NewClassifier(testEmbedder(), catalog)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	if len(classifier.centroids) != 1 {
		t.Errorf("centroids = %d, want 1 (intent without examples skipped)", len(classifier.centroids))
	}
}

func TestNewClassifier_NoExamplesAnywhere(t *testing.T) {
	catalog, err := intent.NewCatalog([]intent.Definition{
		{Name: "billing"},
		{Name: "greeting"},
	}, nil)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}

	if _, err := NewClassifier(testEmbedder(), catalog); err == nil {
		t.Error("NewClassifier should fail when no intent has examples")
	}
}

func TestNewClassifier_NilEmbedder(t *testing.T) {
	if _, err := NewClassifier(nil, testCatalog(t)); err == nil {
		t.Error("NewClassifier should fail without an embedder")
	}
}

func TestNewClassifier_EmbedFailure(t *testing.T) {
	embedder := testEmbedder()
	embedder.err = errors.New("model exploded")

	_, err := NewClassifier(embedder, testCatalog(t))
	if err == nil {
		t.Fatal("NewClassifier should propagate embed failures")
	}

	if !strings.Contains(err.Error(), "billing") {
		t.Errorf("error should name the failing intent, got %q", err.Error())
	}
}

func TestNewClassifier_DimensionMismatch(t *testing.T) {
	embedder := testEmbedder()
	embedder.vectors["question about my bill"] = []float32{1, 0}

	if _, err := NewClassifier(embedder, testCatalog(t)); err == nil {
		t.Error("NewClassifier should reject mismatched embedding dimensions")
	}
}

// =============================================================================
// AVAILABILITY TESTS
// =============================================================================

func TestClassifier_Available(t *testing.T) {
	embedder := testEmbedder()
	classifier, err := NewClassifier(embedder, testCatalog(t))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	if !classifier.Available() {
		t.Error("classifier should be available with a ready embedder")
	}

	embedder.ready = false
	if classifier.Available() {
		t.Error("classifier should be unavailable once the embedder is not ready")
	}
}

// =============================================================================
// ANALYZE TESTS
// =============================================================================

func TestAnalyze_PicksNearestCentroid(t *testing.T) {
	embedder := testEmbedder()
	embedder.vectors["why was I charged twice"] = []float32{0.9, 0.1, 0}

	classifier, err := NewClassifier(embedder, testCatalog(t))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	result, err := classifier.Analyze("why was I charged twice")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Intent != "billing" {
		t.Errorf("Intent = %q, want billing", result.Intent)
	}

	if result.Confidence < 0.9 {
		t.Errorf("Confidence = %f, want near-parallel similarity above 0.9", result.Confidence)
	}

	if !strings.Contains(result.Reasoning, "billing") {
		t.Errorf("Reasoning = %q, should name the matched intent", result.Reasoning)
	}
}

func TestAnalyze_TrimsMessage(t *testing.T) {
	embedder := testEmbedder()
	embedder.vectors["hello"] = []float32{0, 1, 0}

	classifier, err := NewClassifier(embedder, testCatalog(t))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	result, err := classifier.Analyze("   hello   ")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Intent != "greeting" {
		t.Errorf("Intent = %q, want greeting", result.Intent)
	}
}

func TestAnalyze_NegativeSimilarityClampsToZero(t *testing.T) {
	embedder := testEmbedder()
	embedder.vectors["opposite"] = []float32{-1, -1, 0}

	classifier, err := NewClassifier(embedder, testCatalog(t))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	result, err := classifier.Analyze("opposite")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0 for negative similarity", result.Confidence)
	}
}

func TestAnalyze_EmbedError(t *testing.T) {
	embedder := testEmbedder()
	classifier, err := NewClassifier(embedder, testCatalog(t))
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	embedder.err = errors.New("runtime crashed")
	if _, err := classifier.Analyze("hello"); err == nil {
		t.Error("Analyze should propagate embed failures")
	}
}

// =============================================================================
// VECTOR MATH TESTS
// =============================================================================

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", nil, nil, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestMeanVector(t *testing.T) {
	mean, err := meanVector([][]float32{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("meanVector() error = %v", err)
	}

	if mean[0] != 0.5 || mean[1] != 0.5 {
		t.Errorf("mean = %v, want [0.5 0.5]", mean)
	}

	if _, err := meanVector(nil); err == nil {
		t.Error("meanVector should reject empty input")
	}

	if _, err := meanVector([][]float32{{1}, {1, 2}}); err == nil {
		t.Error("meanVector should reject mismatched dimensions")
	}
}
