// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// classify_cmd.go - Classification command implementation for intentgate.
//
// Runs one message (or a file of messages) through the full pipeline:
// fingerprint, result cache, classification cascade, dispatch gate.
//
// Command: classify <message>
// Short:   Classify a message and print the dispatch decision
// Aliases: c
//
// Examples:
//   intentgate classify "where is my order"
//   intentgate classify "hola" --context language=es
//   intentgate classify "this is ridiculous" --session conv-42
//   intentgate classify --file messages.txt --stats
//   intentgate classify "refund please" --json
//
// Flags:
//   --context k=v[,k=v] Request context (repeatable); only allow-listed
//                       keys influence the cache fingerprint
//   --session ID        Shorthand for --context conversation_id=ID
//   --file FILE         Classify every non-empty line of FILE
//   --stats             Print routing statistics after classifying
//   --json              Output in JSON format
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/intentgate/internal/dispatch"
	"github.com/jeranaias/intentgate/internal/router"
)

// =============================================================================
// CLASSIFY COMMAND HANDLER
// =============================================================================

// HandleClassify handles the "classify" command.
func HandleClassify(args Args) error {
	parser := NewArgParser(args.Raw)

	requestContext, err := ParseContextPairs(parser.FlagAll("context"))
	if err != nil {
		return NewUsageError("invalid --context: %v", err)
	}
	if session := parser.Flag("session"); session != "" {
		if requestContext == nil {
			requestContext = make(map[string]any)
		}
		requestContext["conversation_id"] = session
	}

	var messages []string
	if file := parser.Flag("file"); file != "" {
		messages, err = readMessageLines(file)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return NewUsageError("%s contains no messages", file)
		}
	} else {
		message := strings.TrimSpace(strings.Join(parser.PositionalFrom(0), " "))
		if message == "" {
			return NewUsageError("classify requires a message or --file")
		}
		messages = []string{message}
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	r, _, err := buildRouter(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	decisions := make([]dispatch.Decision, 0, len(messages))
	for _, msg := range messages {
		decisions = append(decisions, r.Route(ctx, router.Request{
			Message: msg,
			Context: requestContext,
		}))
	}

	withStats := parser.BoolFlag("stats")

	if args.JSON {
		data := ClassifyData{Decisions: decisions}
		if withStats {
			stats := r.GetStats()
			data.Stats = &stats
		}
		return NewJSONResponse("classify", data).Print()
	}

	if len(decisions) == 1 && !args.Quiet {
		printDecision(decisions[0])
	} else {
		for i, d := range decisions {
			fmt.Printf("%3d. %-40s %s\n", i+1, truncate(messages[i], 40), decisionLine(d))
		}
	}

	if withStats {
		fmt.Println()
		printStatsView(r.GetStats())
	}
	return nil
}

// printDecision displays a single dispatch decision in full.
func printDecision(d dispatch.Decision) {
	fmt.Println()
	fmt.Println("Dispatch Decision")
	fmt.Println(strings.Repeat("=", 39))
	fmt.Printf("  Intent:      %s\n", d.Intent)
	fmt.Printf("  Confidence:  %.2f\n", d.Confidence)
	fmt.Printf("  Handler:     %s\n", d.TargetHandlerID)
	fmt.Printf("  Escalate:    %t\n", d.Escalate)
	fmt.Printf("  Method:      %s\n", d.Method)
	fmt.Printf("  Path:        %s\n", d.Path)
	fmt.Printf("  Cache hit:   %t\n", d.CacheHit)
	fmt.Printf("  Duration:    %dms\n", d.DurationMs)
	if d.Reasoning != "" {
		fmt.Printf("  Reasoning:   %s\n", d.Reasoning)
	}
	fmt.Println()
}

// decisionLine renders a decision as a compact single line for batch and
// quiet output.
func decisionLine(d dispatch.Decision) string {
	marker := ""
	if d.Escalate {
		marker = " ESCALATE"
	}
	if d.CacheHit {
		marker += " (cached)"
	}
	return fmt.Sprintf("-> %s (%.2f) %s [%s]%s", d.Intent, d.Confidence, d.TargetHandlerID, d.Method, marker)
}

// readMessageLines loads one message per non-empty line from a file.
func readMessageLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError("file", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var messages []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			messages = append(messages, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return messages, nil
}
