// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/intentgate/internal/intent"
	"github.com/jeranaias/intentgate/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete intentgate configuration.
type Config struct {
	// Version of the config schema
	Version string `toml:"version" json:"version"`

	// Cache configures the classification result cache
	Cache CacheConfig `toml:"cache" json:"cache"`

	// Classify configures the cascade thresholds and timeouts
	Classify ClassifyConfig `toml:"classify" json:"classify"`

	// Dispatch configures the routing gate
	Dispatch DispatchConfig `toml:"dispatch" json:"dispatch"`

	// Primary configures the generative tier (Ollama)
	Primary PrimaryConfig `toml:"primary" json:"primary"`

	// Secondary configures the on-device embedding tier
	Secondary SecondaryConfig `toml:"secondary" json:"secondary"`

	// Intents replaces the built-in catalog when non-empty
	Intents []intent.Definition `toml:"intents" json:"intents,omitempty"`

	// AlwaysEscalate lists intents that bypass automated handling entirely
	AlwaysEscalate []string `toml:"always_escalate" json:"always_escalate,omitempty"`
}

// CacheConfig contains result cache configuration.
type CacheConfig struct {
	// Enabled controls whether caching is active
	Enabled bool `toml:"enabled" json:"enabled"`
	// MaxEntries is the maximum number of cached classifications
	MaxEntries int `toml:"max_entries" json:"max_entries"`
	// TTLMinutes is the time-to-live for cache entries in minutes
	TTLMinutes int `toml:"ttl_minutes" json:"ttl_minutes"`
}

// ClassifyConfig contains cascade configuration.
type ClassifyConfig struct {
	// PrimaryAcceptThreshold is the minimum confidence to accept a primary
	// tier result (0-1)
	PrimaryAcceptThreshold float64 `toml:"primary_accept_threshold" json:"primary_accept_threshold"`
	// SecondaryAcceptThreshold is the minimum confidence to accept a
	// secondary tier result (0-1)
	SecondaryAcceptThreshold float64 `toml:"secondary_accept_threshold" json:"secondary_accept_threshold"`
	// PrimaryTimeoutSecs bounds each generative classification call
	PrimaryTimeoutSecs int `toml:"primary_timeout_secs" json:"primary_timeout_secs"`
}

// DispatchConfig contains routing gate configuration.
type DispatchConfig struct {
	// ConfidenceThreshold below or at which results route to the fallback
	// handler (0-1)
	ConfidenceThreshold float64 `toml:"confidence_threshold" json:"confidence_threshold"`
	// MaxRetries is the per-conversation error count that triggers escalation
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// FallbackHandler receives low-confidence and unresolved traffic
	FallbackHandler string `toml:"fallback_handler" json:"fallback_handler"`
	// EscalationHandler receives escalated traffic
	EscalationHandler string `toml:"escalation_handler" json:"escalation_handler"`
	// FrustrationKeywords replace the built-in frustration list when set
	FrustrationKeywords []string `toml:"frustration_keywords" json:"frustration_keywords,omitempty"`
}

// PrimaryConfig contains generative tier (Ollama) configuration.
type PrimaryConfig struct {
	// Enabled controls whether the primary tier is wired at all
	Enabled bool `toml:"enabled" json:"enabled"`
	// BaseURL is the Ollama server URL
	BaseURL string `toml:"base_url" json:"base_url"`
	// Model is the generative model used for classification
	Model string `toml:"model" json:"model"`
	// TimeoutSecs is the HTTP client timeout
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries for transient Ollama failures
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RequestsPerSecond caps the request rate against the local server
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	// Temperature for classification prompts; low keeps output parseable
	Temperature float64 `toml:"temperature" json:"temperature"`
}

// SecondaryConfig contains on-device embedding tier configuration.
type SecondaryConfig struct {
	// Enabled controls whether the secondary tier is wired at all
	Enabled bool `toml:"enabled" json:"enabled"`
	// ModelPath is the directory holding the ONNX embedding model
	ModelPath string `toml:"model_path" json:"model_path"`
	// OnnxLibraryPath points at the ONNX Runtime shared library; empty means
	// auto-detect, then fall back to the pure Go backend
	OnnxLibraryPath string `toml:"onnx_library_path" json:"onnx_library_path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values. The intent catalog
// defaults are left empty here; an empty Intents list means "use the
// built-in catalog".
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 1000,
			TTLMinutes: 60,
		},

		Classify: ClassifyConfig{
			PrimaryAcceptThreshold:   0.6,
			SecondaryAcceptThreshold: 0.4,
			PrimaryTimeoutSecs:       5,
		},

		Dispatch: DispatchConfig{
			ConfidenceThreshold: 0.7,
			MaxRetries:          2,
			FallbackHandler:     "fallback-handler",
			EscalationHandler:   "escalation-handler",
		},

		Primary: PrimaryConfig{
			Enabled:           true,
			BaseURL:           "http://127.0.0.1:11434",
			Model:             "llama3.2:3b",
			TimeoutSecs:       30,
			MaxRetries:        2,
			RequestsPerSecond: 5,
			Temperature:       0.1,
		},

		Secondary: SecondaryConfig{
			Enabled:   true,
			ModelPath: "./models/all-MiniLM-L6-v2",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the intentgate configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".intentgate"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// built-in defaults when no file exists. Environment overrides are applied
// after file values, then the result is validated.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over the given config.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults. Boolean fields are
// left as decoded: "false" is a choice, not an omission.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = defaults.Cache.MaxEntries
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = defaults.Cache.TTLMinutes
	}

	if cfg.Classify.PrimaryAcceptThreshold == 0 {
		cfg.Classify.PrimaryAcceptThreshold = defaults.Classify.PrimaryAcceptThreshold
	}
	if cfg.Classify.SecondaryAcceptThreshold == 0 {
		cfg.Classify.SecondaryAcceptThreshold = defaults.Classify.SecondaryAcceptThreshold
	}
	if cfg.Classify.PrimaryTimeoutSecs == 0 {
		cfg.Classify.PrimaryTimeoutSecs = defaults.Classify.PrimaryTimeoutSecs
	}

	if cfg.Dispatch.ConfidenceThreshold == 0 {
		cfg.Dispatch.ConfidenceThreshold = defaults.Dispatch.ConfidenceThreshold
	}
	if cfg.Dispatch.MaxRetries == 0 {
		cfg.Dispatch.MaxRetries = defaults.Dispatch.MaxRetries
	}
	if cfg.Dispatch.FallbackHandler == "" {
		cfg.Dispatch.FallbackHandler = defaults.Dispatch.FallbackHandler
	}
	if cfg.Dispatch.EscalationHandler == "" {
		cfg.Dispatch.EscalationHandler = defaults.Dispatch.EscalationHandler
	}

	if cfg.Primary.BaseURL == "" {
		cfg.Primary.BaseURL = defaults.Primary.BaseURL
	}
	if cfg.Primary.Model == "" {
		cfg.Primary.Model = defaults.Primary.Model
	}
	if cfg.Primary.TimeoutSecs == 0 {
		cfg.Primary.TimeoutSecs = defaults.Primary.TimeoutSecs
	}
	if cfg.Primary.MaxRetries == 0 {
		cfg.Primary.MaxRetries = defaults.Primary.MaxRetries
	}
	if cfg.Primary.RequestsPerSecond == 0 {
		cfg.Primary.RequestsPerSecond = defaults.Primary.RequestsPerSecond
	}
	if cfg.Primary.Temperature == 0 {
		cfg.Primary.Temperature = defaults.Primary.Temperature
	}

	if cfg.Secondary.ModelPath == "" {
		cfg.Secondary.ModelPath = defaults.Secondary.ModelPath
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with restrictive
// permissions. The write is atomic so a crash mid-save never leaves a
// truncated config behind.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# intentgate configuration file")
	fmt.Fprintln(&buf, "# Generated by intentgate - edit with care")
	fmt.Fprintln(&buf, "")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Cache.MaxEntries < 0 {
		errs = append(errs, ValidationError{
			Field:   "cache.max_entries",
			Message: "cannot be negative",
		})
	}
	if c.Cache.TTLMinutes < 0 {
		errs = append(errs, ValidationError{
			Field:   "cache.ttl_minutes",
			Message: "cannot be negative",
		})
	}

	if c.Classify.PrimaryAcceptThreshold <= 0 || c.Classify.PrimaryAcceptThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "classify.primary_accept_threshold",
			Message: fmt.Sprintf("must be in (0, 1], got %g", c.Classify.PrimaryAcceptThreshold),
		})
	}
	if c.Classify.SecondaryAcceptThreshold <= 0 || c.Classify.SecondaryAcceptThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "classify.secondary_accept_threshold",
			Message: fmt.Sprintf("must be in (0, 1], got %g", c.Classify.SecondaryAcceptThreshold),
		})
	}
	if c.Classify.PrimaryTimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "classify.primary_timeout_secs",
			Message: "must be positive",
		})
	}

	if c.Dispatch.ConfidenceThreshold <= 0 || c.Dispatch.ConfidenceThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "dispatch.confidence_threshold",
			Message: fmt.Sprintf("must be in (0, 1], got %g", c.Dispatch.ConfidenceThreshold),
		})
	}
	if c.Dispatch.MaxRetries < 1 {
		errs = append(errs, ValidationError{
			Field:   "dispatch.max_retries",
			Message: "must be at least 1",
		})
	}
	if c.Dispatch.FallbackHandler == "" {
		errs = append(errs, ValidationError{
			Field:   "dispatch.fallback_handler",
			Message: "cannot be empty",
		})
	}
	if c.Dispatch.EscalationHandler == "" {
		errs = append(errs, ValidationError{
			Field:   "dispatch.escalation_handler",
			Message: "cannot be empty",
		})
	}

	if c.Primary.BaseURL != "" {
		if _, err := url.Parse(c.Primary.BaseURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "primary.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}
	if c.Primary.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "primary.requests_per_second",
			Message: "cannot be negative",
		})
	}

	// Intent overrides must form a valid catalog before they replace the
	// built-in one.
	if len(c.Intents) > 0 {
		if _, err := intent.NewCatalog(c.Intents, c.AlwaysEscalate); err != nil {
			errs = append(errs, ValidationError{
				Field:   "intents",
				Message: err.Error(),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - INTENTGATE_OLLAMA_URL: overrides primary.base_url
//   - INTENTGATE_MODEL: overrides primary.model
//   - INTENTGATE_PRIMARY_DISABLED: "1" or "true" disables the primary tier
//   - INTENTGATE_SECONDARY_DISABLED: "1" or "true" disables the secondary tier
//   - INTENTGATE_MODEL_PATH: overrides secondary.model_path
//   - INTENTGATE_ONNX_PATH: overrides secondary.onnx_library_path
//   - INTENTGATE_CACHE_DISABLED: "1" or "true" disables the result cache
//   - INTENTGATE_CONFIDENCE_THRESHOLD: overrides dispatch.confidence_threshold
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("INTENTGATE_OLLAMA_URL"); v != "" {
		c.Primary.BaseURL = v
	}

	if v := os.Getenv("INTENTGATE_MODEL"); v != "" {
		c.Primary.Model = v
	}

	if v := os.Getenv("INTENTGATE_PRIMARY_DISABLED"); v != "" {
		c.Primary.Enabled = !envTrue(v)
	}

	if v := os.Getenv("INTENTGATE_SECONDARY_DISABLED"); v != "" {
		c.Secondary.Enabled = !envTrue(v)
	}

	if v := os.Getenv("INTENTGATE_MODEL_PATH"); v != "" {
		c.Secondary.ModelPath = v
	}

	if v := os.Getenv("INTENTGATE_ONNX_PATH"); v != "" {
		c.Secondary.OnnxLibraryPath = v
	}

	if v := os.Getenv("INTENTGATE_CACHE_DISABLED"); v != "" {
		c.Cache.Enabled = !envTrue(v)
	}

	if v := os.Getenv("INTENTGATE_CONFIDENCE_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			c.Dispatch.ConfidenceThreshold = threshold
		}
	}
}

func envTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// =============================================================================
// CATALOG CONSTRUCTION
// =============================================================================

// Catalog builds the intent catalog from the config's [[intents]] overrides,
// or returns the built-in catalog when none are configured. The always
// escalate list applies in both cases.
func (c *Config) Catalog() (*intent.Catalog, error) {
	defs := c.Intents
	if len(defs) == 0 {
		defs = intent.DefaultDefinitions()
	}

	escalate := c.AlwaysEscalate
	if len(escalate) == 0 && len(c.Intents) == 0 {
		escalate = intent.DefaultAlwaysEscalate()
	}

	return intent.NewCatalog(defs, escalate)
}
