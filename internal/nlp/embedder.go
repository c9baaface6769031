// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nlp

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// =============================================================================
// EMBEDDER INTERFACE
// =============================================================================

// Embedder turns a text into a dense vector. Implementations must be safe
// for concurrent use.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(text string) ([]float32, error)

	// Ready reports whether the embedder can serve requests.
	Ready() bool
}

// =============================================================================
// HUGOT EMBEDDER
// =============================================================================

// Embedding model constants.
const (
	// EmbeddingModelMiniLM is a small, fast sentence embedding model
	// (~80MB, 384 dimensions).
	EmbeddingModelMiniLM = "sentence-transformers/all-MiniLM-L6-v2"

	// DefaultModelPath is the conventional location for the embedding model.
	DefaultModelPath = "./models/all-MiniLM-L6-v2"
)

// EmbedderConfig configures the local ONNX embedder.
type EmbedderConfig struct {
	// ModelPath is the directory holding model.onnx and its tokenizer files.
	ModelPath string

	// OnnxLibraryPath points at the ONNX Runtime shared library. Empty means
	// use the pure Go backend.
	OnnxLibraryPath string
}

// DefaultEmbedderConfig returns a config using the MiniLM model and any
// ONNX Runtime install found on this machine.
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		ModelPath:       DefaultModelPath,
		OnnxLibraryPath: DefaultOnnxLibraryPath(),
	}
}

// DefaultOnnxLibraryPath returns the first ONNX Runtime shared library found
// in the conventional install locations, or "" when none exists.
func DefaultOnnxLibraryPath() string {
	if env := os.Getenv("ONNX_LIBRARY_PATH"); env != "" {
		return env
	}

	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/lib64/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.dylib",
		"/opt/homebrew/lib/libonnxruntime.dylib",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// HugotEmbedder generates sentence embeddings locally via Hugot/ONNX.
type HugotEmbedder struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.RWMutex
	ready    bool
}

// NewHugotEmbedder loads the model at cfg.ModelPath and prepares a feature
// extraction pipeline. The ONNX Runtime backend is preferred when a library
// path is configured; otherwise the pure Go backend is used.
func NewHugotEmbedder(cfg EmbedderConfig) (*HugotEmbedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("no embedding model path specified")
	}
	if _, err := os.Stat(filepath.Join(cfg.ModelPath, "model.onnx")); err != nil {
		return nil, fmt.Errorf("embedding model not found at %s: %w", cfg.ModelPath, err)
	}

	session, err := newSession(cfg.OnnxLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference session: %w", err)
	}

	pipelineCfg := hugot.FeatureExtractionConfig{
		ModelPath: cfg.ModelPath,
		Name:      "intent-embedder",
	}

	pipeline, err := hugot.NewPipeline(session, pipelineCfg)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	log.Printf("[nlp] embedder initialized (model: %s)", cfg.ModelPath)
	return &HugotEmbedder{
		session:  session,
		pipeline: pipeline,
		ready:    true,
	}, nil
}

// newSession prefers the ONNX Runtime backend and falls back to the pure Go
// backend when the runtime library is missing or fails to load.
func newSession(onnxLibraryPath string) (*hugot.Session, error) {
	if onnxLibraryPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(onnxLibraryPath))
		if err == nil {
			log.Printf("[nlp] using ONNX Runtime backend")
			return session, nil
		}
		log.Printf("[nlp] ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, err
	}
	log.Printf("[nlp] using pure Go backend")
	return session, nil
}

// Embed generates the embedding for one text.
func (e *HugotEmbedder) Embed(text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.ready || e.pipeline == nil {
		return nil, fmt.Errorf("embedder not ready")
	}

	result, err := e.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return result.Embeddings[0], nil
}

// Ready reports whether the embedder can serve requests.
func (e *HugotEmbedder) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Close releases the inference session.
func (e *HugotEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ready = false
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}
