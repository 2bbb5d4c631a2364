// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generation defines the external generation and retrieval
// boundary the continuation loop consumes.
//
// Providers live outside this module; the loop sees a single capability,
// generate(prompt, params) -> text, failing with ProviderError. The
// failover client composes a primary and fallback provider with the
// retry-once policy.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// Params tune one generation call. Nil fields use provider defaults.
type Params struct {
	// Temperature controls sampling temperature.
	Temperature *float64

	// MaxTokens caps the response length.
	MaxTokens *int

	// TaskType tells the provider what kind of output is expected.
	TaskType datatypes.TaskType
}

// Generator is the generation capability consumed by the orchestrator.
type Generator interface {
	// Generate produces text for the prompt. Fails with *ProviderError
	// on provider-side problems.
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// ContextRetriever is the optional retrieval capability. Absence (a nil
// retriever) degrades the loop to the immediate task context only.
type ContextRetriever interface {
	// Retrieve returns ranked context snippets for the query, best first.
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// BuildPrompt assembles the enhancement prompt from the current output,
// the selected opportunity, and any retrieved context.
func BuildPrompt(current datatypes.TaskResult, opp datatypes.EnhancementOpportunity, snippets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Improve the following %s output.\n\n", current.TaskType)
	fmt.Fprintf(&b, "Enhancement goal (%s): %s\n\n", opp.Category, opp.Description)
	if len(snippets) > 0 {
		b.WriteString("Relevant context:\n")
		for _, s := range snippets {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	b.WriteString("Current output:\n")
	b.WriteString(current.Output)
	b.WriteString("\n\nReturn the complete improved output, not a diff.")
	return b.String()
}
