// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generation

import (
	"context"
	"strings"
	"sync"
)

// ScriptedGenerator replays a fixed sequence of responses or errors.
// Used by tests and the demo CLI; it makes no network calls.
//
// Thread Safety:
//
//	Safe for concurrent use.
type ScriptedGenerator struct {
	mu sync.Mutex

	// Name labels the generator in provider errors.
	Name string

	steps []scriptStep
	calls int

	// Prompts records every prompt received, for assertions.
	Prompts []string
}

type scriptStep struct {
	text string
	err  error
}

// NewScriptedGenerator creates an empty script. With no steps, every
// call echoes the prompt's current-output section back with a marker
// appended, which is enough to drive a demo loop deterministically.
func NewScriptedGenerator(name string) *ScriptedGenerator {
	return &ScriptedGenerator{Name: name}
}

// Respond queues a successful response.
func (g *ScriptedGenerator) Respond(text string) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.steps = append(g.steps, scriptStep{text: text})
	return g
}

// Fail queues a provider failure of the given kind.
func (g *ScriptedGenerator) Fail(kind ProviderErrorKind) *ScriptedGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.steps = append(g.steps, scriptStep{err: NewProviderError(kind, g.Name, nil)})
	return g
}

// Calls returns how many times Generate ran.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Generate implements Generator.
func (g *ScriptedGenerator) Generate(ctx context.Context, prompt string, _ Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewProviderError(KindUnavailable, g.Name, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.Prompts = append(g.Prompts, prompt)

	if len(g.steps) == 0 {
		return echoImproved(prompt), nil
	}
	step := g.steps[0]
	g.steps = g.steps[1:]
	if step.err != nil {
		return "", step.err
	}
	return step.text, nil
}

// echoImproved extracts the current output from the prompt and appends a
// deterministic improvement marker.
func echoImproved(prompt string) string {
	const marker = "Current output:\n"
	idx := strings.Index(prompt, marker)
	if idx < 0 {
		return prompt + "\n# revised"
	}
	body := prompt[idx+len(marker):]
	if end := strings.Index(body, "\n\nReturn the complete improved output"); end >= 0 {
		body = body[:end]
	}
	return body + "\n# revised: " + firstLine(prompt)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
