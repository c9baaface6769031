// json_output.go - JSON output support for scripting and log pipelines.
//
// Provides a standardized JSON output format for all CLI commands so
// decisions and statistics can be consumed by other tools unchanged.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/intentgate/internal/cache"
	"github.com/jeranaias/intentgate/internal/config"
	"github.com/jeranaias/intentgate/internal/dispatch"
	"github.com/jeranaias/intentgate/internal/router"
)

// JSONResponse is the standardized response format for all CLI commands.
// Machine-parseable output goes to stdout; human-readable warnings go to
// stderr so piped output stays clean.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Error:     nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Data:      nil,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// PrintCompact outputs the JSON response without indentation.
// Useful for piping to other tools or log aggregation.
func (r *JSONResponse) PrintCompact() error {
	return json.NewEncoder(os.Stdout).Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// ClassifyData is the data payload of the classify command. A single
// message produces one decision; batch mode produces one per input line.
type ClassifyData struct {
	Decisions []dispatch.Decision `json:"decisions"`
	Stats     *router.StatsView   `json:"stats,omitempty"`
}

// TierStatus reports whether a classification tier is wired and reachable.
type TierStatus struct {
	Configured bool   `json:"configured"`
	Available  bool   `json:"available"`
	Detail     string `json:"detail,omitempty"`
}

// TierHealth groups the per-tier availability view. The keyword tier has no
// entry: it is always available.
type TierHealth struct {
	Primary   TierStatus `json:"primary"`
	Secondary TierStatus `json:"secondary"`
}

// StatsData is the data payload of the stats command.
type StatsData struct {
	Stats      router.StatsView `json:"stats"`
	Tiers      TierHealth       `json:"tiers"`
	ConfigPath string           `json:"config_path,omitempty"`
}

// CacheStatsData is the data payload of the cache stats command.
type CacheStatsData struct {
	Enabled    bool        `json:"enabled"`
	MaxEntries int         `json:"max_entries"`
	TTLMinutes int         `json:"ttl_minutes"`
	Stats      cache.Stats `json:"stats"`
}

// CacheClearData is the data payload of the cache clear command.
type CacheClearData struct {
	Cleared int `json:"cleared"`
}

// IntentInfo describes one catalog intent for display.
type IntentInfo struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Handler        string   `json:"handler"`
	Keywords       []string `json:"keywords,omitempty"`
	Examples       int      `json:"examples"`
	AlwaysEscalate bool     `json:"always_escalate"`
}

// IntentsData is the data payload of the intents command.
type IntentsData struct {
	Intents        []IntentInfo `json:"intents"`
	AlwaysEscalate []string     `json:"always_escalate"`
}

// ConfigData is the data payload of the config show command.
type ConfigData struct {
	Path   string         `json:"path"`
	Config *config.Config `json:"config"`
}

// VersionData is the data payload of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}
