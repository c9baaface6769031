// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package intent holds the catalog of intents the system can classify into.
package intent

import (
	"fmt"
	"strings"
)

// =============================================================================
// CORE CONSTANTS
// =============================================================================

// Fallback is the reserved intent name used when no tier produces a
// trustworthy classification. It is always resolvable and never escalates
// on its own.
const Fallback = "fallback"

// =============================================================================
// DEFINITION TYPE
// =============================================================================

// Definition describes a single intent the classifier can produce.
type Definition struct {
	// Name is the canonical intent identifier (lowercase, stable)
	Name string `toml:"name" json:"name"`

	// Description is a short human-readable explanation, also handed to the
	// generative tier so it knows what each intent means
	Description string `toml:"description" json:"description"`

	// Handler is the identifier of the specialized handler for this intent
	Handler string `toml:"handler" json:"handler"`

	// Keywords drive the deterministic tertiary tier
	Keywords []string `toml:"keywords" json:"keywords"`

	// Examples are sample utterances used to build embedding centroids for
	// the on-device secondary tier
	Examples []string `toml:"examples" json:"examples,omitempty"`
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is the ordered set of valid intents. Order matters: the tertiary
// keyword tier breaks score ties by definition order, so iteration must be
// stable across runs.
type Catalog struct {
	defs           []Definition
	index          map[string]int
	alwaysEscalate map[string]bool
}

// NewCatalog builds a catalog from definitions plus the set of intents that
// always escalate to a human operator. Names are normalized to lowercase.
func NewCatalog(defs []Definition, alwaysEscalate []string) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("intent catalog requires at least one definition")
	}

	c := &Catalog{
		defs:           make([]Definition, 0, len(defs)),
		index:          make(map[string]int, len(defs)),
		alwaysEscalate: make(map[string]bool, len(alwaysEscalate)),
	}

	for _, d := range defs {
		name := strings.ToLower(strings.TrimSpace(d.Name))
		if name == "" {
			return nil, fmt.Errorf("intent definition with empty name")
		}
		if name == Fallback {
			return nil, fmt.Errorf("intent name %q is reserved", Fallback)
		}
		if _, exists := c.index[name]; exists {
			return nil, fmt.Errorf("duplicate intent definition: %s", name)
		}
		d.Name = name
		c.index[name] = len(c.defs)
		c.defs = append(c.defs, d)
	}

	for _, name := range alwaysEscalate {
		c.alwaysEscalate[strings.ToLower(strings.TrimSpace(name))] = true
	}

	return c, nil
}

// Default returns the built-in support-domain catalog. Deployments override
// it through the [[intents]] config section.
func Default() *Catalog {
	c, err := NewCatalog(DefaultDefinitions(), DefaultAlwaysEscalate())
	if err != nil {
		// Built-in definitions are validated by tests; this cannot happen
		// at runtime.
		panic(err)
	}
	return c
}

// DefaultDefinitions returns the built-in intent definitions.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:        "greeting",
			Description: "The user is opening the conversation or saying hello",
			Handler:     "smalltalk-handler",
			Keywords:    []string{"hello", "hi", "hey", "good morning", "good afternoon"},
			Examples: []string{
				"hi there",
				"hello, anyone around?",
				"good morning",
			},
		},
		{
			Name:        "order_status",
			Description: "The user asks where an order is or when it will arrive",
			Handler:     "order-status-handler",
			Keywords:    []string{"order", "tracking", "shipped", "delivery", "arrive", "package"},
			Examples: []string{
				"where is my order",
				"has my package shipped yet",
				"when will my delivery arrive",
			},
		},
		{
			Name:        "refund_request",
			Description: "The user wants money back or to return a purchase",
			Handler:     "refund-handler",
			Keywords:    []string{"refund", "return", "money back", "cancel order", "charge"},
			Examples: []string{
				"i want a refund",
				"how do i return this",
				"you charged me twice, give me my money back",
			},
		},
		{
			Name:        "technical_support",
			Description: "The user reports something broken or not working",
			Handler:     "tech-support-handler",
			Keywords:    []string{"error", "broken", "not working", "crash", "bug", "login"},
			Examples: []string{
				"the app crashes when i open it",
				"i get an error when logging in",
				"the website is not working",
			},
		},
		{
			Name:        "account_question",
			Description: "The user asks about account settings, billing details, or profile data",
			Handler:     "account-handler",
			Keywords:    []string{"account", "password", "email", "subscription", "billing", "invoice"},
			Examples: []string{
				"how do i change my password",
				"update the email on my account",
				"question about my subscription billing",
			},
		},
		{
			Name:        "complaint",
			Description: "The user expresses dissatisfaction with the product or service",
			Handler:     "escalation-handler",
			Keywords:    []string{"terrible", "awful", "worst", "unacceptable", "disappointed", "complaint"},
			Examples: []string{
				"this is the worst service i have ever used",
				"i am extremely disappointed",
				"i want to file a complaint",
			},
		},
		{
			Name:        "human_handoff",
			Description: "The user explicitly asks to talk to a person",
			Handler:     "escalation-handler",
			Keywords:    []string{"human", "agent", "person", "representative", "speak to someone"},
			Examples: []string{
				"let me talk to a human",
				"i want a real person",
				"connect me with an agent",
			},
		},
	}
}

// DefaultAlwaysEscalate returns the intents that bypass automated routing.
func DefaultAlwaysEscalate() []string {
	return []string{"human_handoff", "complaint"}
}

// =============================================================================
// LOOKUP METHODS
// =============================================================================

// Contains reports whether name is a valid intent. The reserved fallback
// intent is always valid.
func (c *Catalog) Contains(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == Fallback {
		return true
	}
	_, ok := c.index[name]
	return ok
}

// Get returns the definition for name.
func (c *Catalog) Get(name string) (Definition, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// HandlerFor returns the handler identifier configured for name.
func (c *Catalog) HandlerFor(name string) (string, bool) {
	d, ok := c.Get(name)
	if !ok {
		return "", false
	}
	return d.Handler, true
}

// AlwaysEscalate reports whether name is in the always-escalate set.
func (c *Catalog) AlwaysEscalate(name string) bool {
	return c.alwaysEscalate[strings.ToLower(strings.TrimSpace(name))]
}

// AlwaysEscalateSet returns a copy of the always-escalate intent names.
func (c *Catalog) AlwaysEscalateSet() []string {
	names := make([]string, 0, len(c.alwaysEscalate))
	for name := range c.alwaysEscalate {
		names = append(names, name)
	}
	return names
}

// Names returns the intent names in definition order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.defs))
	for i, d := range c.defs {
		names[i] = d.Name
	}
	return names
}

// Definitions returns a copy of the definitions in stable order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len returns the number of defined intents (excluding the reserved fallback).
func (c *Catalog) Len() int {
	return len(c.defs)
}

// =============================================================================
// HANDLER REGISTRY
// =============================================================================

// Registry resolves intents to handler identifiers. It is the default,
// catalog-backed implementation of the dispatch gate's registry dependency;
// production systems substitute their own.
type Registry struct {
	handlers        map[string]string
	fallbackHandler string
}

// NewRegistry derives a registry from the catalog. The fallback handler must
// be non-empty since the reserved fallback intent is always resolvable.
func NewRegistry(c *Catalog, fallbackHandler string) (*Registry, error) {
	if fallbackHandler == "" {
		return nil, fmt.Errorf("registry requires a fallback handler id")
	}

	r := &Registry{
		handlers:        make(map[string]string, c.Len()+1),
		fallbackHandler: fallbackHandler,
	}
	for _, d := range c.Definitions() {
		if d.Handler == "" {
			return nil, fmt.Errorf("intent %s has no handler id", d.Name)
		}
		r.handlers[d.Name] = d.Handler
	}
	r.handlers[Fallback] = fallbackHandler

	return r, nil
}

// Resolve returns the handler id for intent, or an error when the intent is
// unknown. Callers treat resolution failure as a fallback route.
func (r *Registry) Resolve(intentName string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(intentName))
	if handler, ok := r.handlers[name]; ok {
		return handler, nil
	}
	return "", fmt.Errorf("no handler registered for intent %q", intentName)
}

// FallbackHandler returns the configured fallback handler id.
func (r *Registry) FallbackHandler() string {
	return r.fallbackHandler
}
