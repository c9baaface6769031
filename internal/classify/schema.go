// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// =============================================================================
// PRIMARY REPLY SCHEMA
// =============================================================================

// primaryReplySchema is the contract the generative tier's reply must meet.
// Validation failures are malformed-output tier faults, never surfaced.
const primaryReplySchema = `{
	"type": "object",
	"required": ["intent", "confidence"],
	"properties": {
		"intent": {"type": "string", "minLength": 1},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"entities": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"reasoning": {"type": "string"}
	}
}`

var compiledReplySchema = mustCompileReplySchema()

func mustCompileReplySchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(primaryReplySchema))
	if err != nil {
		panic(fmt.Sprintf("classify: invalid primary reply schema: %v", err))
	}
	return schema
}

// =============================================================================
// REPLY PARSING
// =============================================================================

// primaryReply is the decoded shape of a valid generative tier reply.
type primaryReply struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities"`
	Reasoning  string            `json:"reasoning"`
}

// parsePrimaryReply extracts the JSON object from the model's raw text,
// validates it against the reply schema, and decodes it. Models wrap JSON in
// prose or markdown fences often enough that extraction comes first.
func parsePrimaryReply(raw string) (primaryReply, error) {
	var reply primaryReply

	payload, err := extractJSONObject(raw)
	if err != nil {
		return reply, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	validation := compiledReplySchema.ValidateJSON([]byte(payload))
	if !validation.IsValid() {
		return reply, fmt.Errorf("%w: schema validation failed: %v", ErrMalformedOutput, validation.Errors)
	}

	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return reply, fmt.Errorf("%w: decode: %v", ErrMalformedOutput, err)
	}
	return reply, nil
}

// extractJSONObject returns the first top-level JSON object in text,
// tolerating markdown code fences and surrounding prose.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty reply")
	}

	// Strip a ```json ... ``` or ``` ... ``` fence when present.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in reply")
	}

	// Walk to the matching close brace, respecting strings and escapes.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in reply")
}
