// wire.go - Assembles the routing pipeline from configuration.
//
// Tier adapters degrade instead of failing: a disabled or unreachable
// generative backend and a missing embedding model both leave the cascade
// running on the tiers that remain, down to keyword matching alone.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/intentgate/internal/cache"
	"github.com/jeranaias/intentgate/internal/classify"
	"github.com/jeranaias/intentgate/internal/config"
	"github.com/jeranaias/intentgate/internal/dispatch"
	"github.com/jeranaias/intentgate/internal/intent"
	"github.com/jeranaias/intentgate/internal/nlp"
	"github.com/jeranaias/intentgate/internal/ollama"
	"github.com/jeranaias/intentgate/internal/router"
)

// probeTimeout bounds the primary tier health check at startup.
const probeTimeout = 2 * time.Second

// loadConfig resolves the effective configuration: the --config path when
// given, otherwise the default file when it exists, built-in defaults when
// it does not.
func loadConfig(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

// buildRouter assembles the full pipeline from configuration. Construction
// fails only on invalid configuration; unavailable tiers are reported in
// the returned TierHealth and simply left unwired.
func buildRouter(cfg *config.Config) (*router.Router, TierHealth, error) {
	var health TierHealth

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, health, fmt.Errorf("intent catalog: %w", err)
	}

	var primary classify.PrimaryClassifier
	primary, health.Primary = wirePrimary(cfg)

	var secondary classify.SecondaryClassifier
	secondary, health.Secondary = wireSecondary(cfg, catalog)

	cascade := classify.NewCascade(classify.CascadeConfig{
		PrimaryAcceptThreshold:   cfg.Classify.PrimaryAcceptThreshold,
		SecondaryAcceptThreshold: cfg.Classify.SecondaryAcceptThreshold,
		PrimaryTimeout:           time.Duration(cfg.Classify.PrimaryTimeoutSecs) * time.Second,
	}, primary, secondary, catalog)

	registry, err := intent.NewRegistry(catalog, cfg.Dispatch.FallbackHandler)
	if err != nil {
		return nil, health, fmt.Errorf("handler registry: %w", err)
	}

	gate := dispatch.NewGate(dispatch.GateConfig{
		ConfidenceThreshold: cfg.Dispatch.ConfidenceThreshold,
		MaxRetries:          cfg.Dispatch.MaxRetries,
		FrustrationKeywords: cfg.Dispatch.FrustrationKeywords,
		FallbackHandlerID:   cfg.Dispatch.FallbackHandler,
		EscalationHandlerID: cfg.Dispatch.EscalationHandler,
	}, registry, catalog.AlwaysEscalateSet())

	resultCache := cache.NewDisabled()
	if cfg.Cache.Enabled {
		resultCache = cache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
	}

	r, err := router.New(router.Deps{
		Cache:   resultCache,
		Cascade: cascade,
		Gate:    gate,
	})
	if err != nil {
		return nil, health, err
	}

	return r, health, nil
}

// wirePrimary builds the generative tier adapter when it is enabled and the
// backend answers a health probe. Any failure leaves the tier unwired.
func wirePrimary(cfg *config.Config) (classify.PrimaryClassifier, TierStatus) {
	if !cfg.Primary.Enabled {
		return nil, TierStatus{Detail: "disabled in config"}
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:           cfg.Primary.BaseURL,
		DefaultModel:      cfg.Primary.Model,
		Timeout:           time.Duration(cfg.Primary.TimeoutSecs) * time.Second,
		MaxRetries:        cfg.Primary.MaxRetries,
		RequestsPerSecond: cfg.Primary.RequestsPerSecond,
		Temperature:       cfg.Primary.Temperature,
	})

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := client.CheckRunning(ctx); err != nil {
		log.Printf("[cli] primary tier unavailable, continuing without it: %v", err)
		return nil, TierStatus{Configured: true, Detail: err.Error()}
	}

	model := client.GetDefaultModel()
	if !client.ModelExists(ctx, model) {
		log.Printf("[cli] model %s not found at %s, continuing without primary tier", model, cfg.Primary.BaseURL)
		return nil, TierStatus{Configured: true, Detail: fmt.Sprintf("model %s not found", model)}
	}

	return client, TierStatus{
		Configured: true,
		Available:  true,
		Detail:     fmt.Sprintf("%s at %s", model, cfg.Primary.BaseURL),
	}
}

// wireSecondary builds the embedding tier adapter when it is enabled and
// the local model loads. Any failure leaves the tier unwired.
func wireSecondary(cfg *config.Config, catalog *intent.Catalog) (classify.SecondaryClassifier, TierStatus) {
	if !cfg.Secondary.Enabled {
		return nil, TierStatus{Detail: "disabled in config"}
	}

	embedder, err := nlp.NewHugotEmbedder(nlp.EmbedderConfig{
		ModelPath:       cfg.Secondary.ModelPath,
		OnnxLibraryPath: cfg.Secondary.OnnxLibraryPath,
	})
	if err != nil {
		log.Printf("[cli] secondary tier unavailable, continuing without it: %v", err)
		return nil, TierStatus{Configured: true, Detail: err.Error()}
	}

	classifier, err := nlp.NewClassifier(embedder, catalog)
	if err != nil {
		embedder.Close()
		log.Printf("[cli] secondary tier unavailable, continuing without it: %v", err)
		return nil, TierStatus{Configured: true, Detail: err.Error()}
	}

	return classifier, TierStatus{
		Configured: true,
		Available:  true,
		Detail:     cfg.Secondary.ModelPath,
	}
}
