// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// intents_cmd.go - Intent catalog inspection commands for intentgate.
//
// Command: intents [name]
// Short:   List the configured intent catalog
// Aliases: intent
//
// Examples:
//   intentgate intents                    List all intents
//   intentgate intents order_status       Show one intent in detail
//   intentgate intents --json             Catalog in JSON format
package cli

import (
	"fmt"
	"strings"
)

// =============================================================================
// INTENTS COMMAND HANDLER
// =============================================================================

// HandleIntents handles the "intents" command.
func HandleIntents(args Args) error {
	parser := NewArgParser(args.Raw)

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	infos := make([]IntentInfo, 0, catalog.Len())
	for _, def := range catalog.Definitions() {
		infos = append(infos, IntentInfo{
			Name:           def.Name,
			Description:    def.Description,
			Handler:        def.Handler,
			Keywords:       def.Keywords,
			Examples:       len(def.Examples),
			AlwaysEscalate: catalog.AlwaysEscalate(def.Name),
		})
	}

	// A positional name narrows the output to one intent.
	if name := parser.Subcommand(); name != "" {
		return showIntent(args, infos, name)
	}

	if args.JSON {
		data := IntentsData{
			Intents:        infos,
			AlwaysEscalate: catalog.AlwaysEscalateSet(),
		}
		return NewJSONResponse("intents", data).Print()
	}

	fmt.Println()
	fmt.Println("intentgate Intent Catalog")
	fmt.Println(strings.Repeat("=", 39))
	fmt.Println()
	for _, info := range infos {
		marker := ""
		if info.AlwaysEscalate {
			marker = "  [escalates]"
		}
		fmt.Printf("  %-20s -> %-24s keywords=%d examples=%d%s\n",
			info.Name, info.Handler, len(info.Keywords), info.Examples, marker)
	}
	fmt.Println()
	fmt.Printf("%d intents configured\n", len(infos))
	return nil
}

// showIntent displays a single catalog entry in detail.
func showIntent(args Args, infos []IntentInfo, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, info := range infos {
		if info.Name != name {
			continue
		}
		if args.JSON {
			return NewJSONResponse("intents", info).Print()
		}

		fmt.Println()
		fmt.Printf("Intent: %s\n", info.Name)
		fmt.Println(strings.Repeat("=", 39))
		if info.Description != "" {
			fmt.Printf("  Description: %s\n", info.Description)
		}
		fmt.Printf("  Handler:     %s\n", info.Handler)
		fmt.Printf("  Escalates:   %t\n", info.AlwaysEscalate)
		if len(info.Keywords) > 0 {
			fmt.Printf("  Keywords:    %s\n", strings.Join(info.Keywords, ", "))
		}
		fmt.Printf("  Examples:    %d\n", info.Examples)
		fmt.Println()
		return nil
	}
	return NewNotFoundError("intent", name)
}
