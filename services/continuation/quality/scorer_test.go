// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

const goSample = `package main

// Greet prints a greeting and reports failures.
func Greet() error {
	if err := emit("hello"); err != nil {
		return err
	}
	return nil
}
`

const pythonSample = `def main():
    """Prints hi."""
    print('hi')
`

func TestScorer_Boundedness(t *testing.T) {
	scorer := NewScorer()
	inputs := []string{
		"",
		"x",
		goSample,
		pythonSample,
		"The quarterly revenue grew 14% while costs fell 3%.\n- margin up\n- churn down",
		"1. Install the agent\n2. Run the check\n3. Verify the output",
	}

	for _, taskType := range datatypes.AllTaskTypes() {
		for _, input := range inputs {
			a := scorer.Score(input, nil, taskType, datatypes.TaskContext{})
			require.NoError(t, a.Validate(), "type=%s input=%q", taskType, input)
			assert.GreaterOrEqual(t, a.Overall, 0.0)
			assert.LessOrEqual(t, a.Overall, 1.0)
			for dim, v := range a.Dimensions {
				assert.GreaterOrEqual(t, v, 0.0, "dimension %s", dim)
				assert.LessOrEqual(t, v, 1.0, "dimension %s", dim)
			}
		}
	}
}

func TestScorer_Deterministic(t *testing.T) {
	scorer := NewScorer()
	tctx := datatypes.TaskContext{
		Query:    "explain the revenue trend",
		Snippets: []string{"revenue grew because of enterprise renewals"},
	}
	prev := "revenue went up"

	for _, taskType := range datatypes.AllTaskTypes() {
		first := scorer.Score(goSample, &prev, taskType, tctx)
		second := scorer.Score(goSample, &prev, taskType, tctx)
		assert.Equal(t, first, second, "type=%s", taskType)
	}
}

func TestScorer_EmptyOutput(t *testing.T) {
	scorer := NewScorer()
	a := scorer.Score("", nil, datatypes.TaskCode, datatypes.TaskContext{})

	assert.Zero(t, a.Overall)
	assert.Equal(t, 1.0, a.Confidence, "certain the output is empty")
	assert.Nil(t, a.Delta)
}

func TestScorer_IdenticalInputsZeroDelta(t *testing.T) {
	scorer := NewScorer()
	same := goSample
	a := scorer.Score(goSample, &same, datatypes.TaskCode, datatypes.TaskContext{})

	require.NotNil(t, a.Delta)
	assert.Zero(t, *a.Delta, "identical inputs must produce exactly zero delta")
}

func TestScorer_NoBaselineOnFirstIteration(t *testing.T) {
	scorer := NewScorer()
	a := scorer.Score(goSample, nil, datatypes.TaskCode, datatypes.TaskContext{})
	assert.Nil(t, a.Delta)
	assert.False(t, a.HasBaseline())
}

func TestScorer_DocumentationImprovesCodeScore(t *testing.T) {
	scorer := NewScorer()
	prev := "print('hi')"
	a := scorer.Score(pythonSample, &prev, datatypes.TaskCode, datatypes.TaskContext{})

	require.NotNil(t, a.Delta)
	assert.Positive(t, *a.Delta, "documented function should outscore a bare print")
	assert.Greater(t, a.Dimensions[DimDocumentation], 0.0)
}

func TestScorer_ParsedGoHasHigherConfidence(t *testing.T) {
	scorer := NewScorer()

	parsed := scorer.Score(goSample, nil, datatypes.TaskCode, datatypes.TaskContext{})
	heuristic := scorer.Score(pythonSample, nil, datatypes.TaskCode, datatypes.TaskContext{})

	assert.Greater(t, parsed.Confidence, heuristic.Confidence)
}

func TestScorer_MalformedGoDegradesNotFails(t *testing.T) {
	scorer := NewScorer()
	broken := "package main\nfunc {{{ not go at all"

	a := scorer.Score(broken, nil, datatypes.TaskCode, datatypes.TaskContext{})
	require.NoError(t, a.Validate())
	assert.Less(t, a.Confidence, 0.95, "fallback path lowers confidence")
}

func TestScorer_UnknownTaskTypeDegrades(t *testing.T) {
	scorer := NewScorer()
	a := scorer.Score("some text", nil, datatypes.TaskType("mystery"), datatypes.TaskContext{})
	require.NoError(t, a.Validate())
	assert.Less(t, a.Confidence, 0.5)
}

func TestScorer_SnippetGroundingRaisesDocumentQA(t *testing.T) {
	scorer := NewScorer()
	answer := "The deployment failed because the certificate expired on Tuesday."
	tctx := datatypes.TaskContext{
		Query:    "why did the deployment fail",
		Snippets: []string{"certificate expired Tuesday deployment failed"},
	}

	grounded := scorer.Score(answer, nil, datatypes.TaskDocumentQA, tctx)
	ungrounded := scorer.Score(answer, nil, datatypes.TaskDocumentQA, datatypes.TaskContext{})

	assert.Greater(t,
		grounded.Dimensions[DimGrounding],
		ungrounded.Dimensions[DimGrounding])
}
