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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

func TestFailoverClient_PrimarySucceeds(t *testing.T) {
	primary := NewScriptedGenerator("primary").Respond("primary answer")
	fallback := NewScriptedGenerator("fallback")
	client := NewFailoverClient(primary, fallback)

	text, err := client.Generate(context.Background(), "prompt", Params{TaskType: datatypes.TaskCode})

	require.NoError(t, err)
	assert.Equal(t, "primary answer", text)
	assert.Equal(t, 0, fallback.Calls(), "fallback untouched on success")
}

func TestFailoverClient_RetryableFailureUsesFallback(t *testing.T) {
	for _, kind := range []ProviderErrorKind{KindTimeout, KindRateLimited, KindUnavailable} {
		t.Run(string(kind), func(t *testing.T) {
			primary := NewScriptedGenerator("primary").Fail(kind)
			fallback := NewScriptedGenerator("fallback").Respond("fallback answer")
			client := NewFailoverClient(primary, fallback)

			text, err := client.Generate(context.Background(), "prompt", Params{})

			require.NoError(t, err)
			assert.Equal(t, "fallback answer", text)
			assert.Equal(t, 1, fallback.Calls())
		})
	}
}

func TestFailoverClient_AuthFailureIsFatal(t *testing.T) {
	primary := NewScriptedGenerator("primary").Fail(KindAuth)
	fallback := NewScriptedGenerator("fallback").Respond("never used")
	client := NewFailoverClient(primary, fallback)

	_, err := client.Generate(context.Background(), "prompt", Params{})

	require.Error(t, err)
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, pe.Kind)
	assert.Equal(t, 0, fallback.Calls(), "auth failures never reach the fallback")
}

func TestFailoverClient_BothFail(t *testing.T) {
	primary := NewScriptedGenerator("primary").Fail(KindTimeout)
	fallback := NewScriptedGenerator("fallback").Fail(KindTimeout)
	client := NewFailoverClient(primary, fallback)

	_, err := client.Generate(context.Background(), "prompt", Params{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "fallback", pe.Provider)
}

func TestFailoverClient_NoFallbackConfigured(t *testing.T) {
	primary := NewScriptedGenerator("primary").Fail(KindTimeout)
	client := NewFailoverClient(primary, nil)

	_, err := client.Generate(context.Background(), "prompt", Params{})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAllProvidersFailed,
		"a lone provider failing stays retryable for the caller")
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "primary", pe.Provider)
}

func TestFailoverClient_WrapsUnknownErrors(t *testing.T) {
	primary := NewScriptedGenerator("primary")
	primary.steps = []scriptStep{{err: assert.AnError}}
	fallback := NewScriptedGenerator("fallback").Respond("recovered")
	client := NewFailoverClient(primary, fallback)

	text, err := client.Generate(context.Background(), "prompt", Params{})

	require.NoError(t, err, "a non-ProviderError primary failure is treated as retryable")
	assert.Equal(t, "recovered", text)
}

func TestProviderError_Retryable(t *testing.T) {
	assert.True(t, NewProviderError(KindTimeout, "p", nil).Retryable())
	assert.True(t, NewProviderError(KindRateLimited, "p", nil).Retryable())
	assert.True(t, NewProviderError(KindUnavailable, "p", nil).Retryable())
	assert.False(t, NewProviderError(KindAuth, "p", nil).Retryable())
}

func TestBuildPrompt_Sections(t *testing.T) {
	current := datatypes.TaskResult{
		Output:   "print('hi')",
		TaskType: datatypes.TaskCode,
	}
	opp := datatypes.EnhancementOpportunity{
		Category:    datatypes.CategoryQualityImprovement,
		Description: "add documentation",
	}

	prompt := BuildPrompt(current, opp, []string{"style guide says docstrings"})

	assert.Contains(t, prompt, "code output")
	assert.Contains(t, prompt, "quality_improvement")
	assert.Contains(t, prompt, "add documentation")
	assert.Contains(t, prompt, "style guide says docstrings")
	assert.Contains(t, prompt, "print('hi')")
}

func TestScriptedGenerator_EchoImproved(t *testing.T) {
	gen := NewScriptedGenerator("demo")
	current := datatypes.TaskResult{Output: "print('hi')", TaskType: datatypes.TaskCode}
	opp := datatypes.EnhancementOpportunity{
		Category:    datatypes.CategoryQualityImprovement,
		Description: "polish",
	}

	text, err := gen.Generate(context.Background(), BuildPrompt(current, opp, nil), Params{})

	require.NoError(t, err)
	assert.Contains(t, text, "print('hi')")
	assert.NotEqual(t, current.Output, text, "demo generator always changes the output")
}
