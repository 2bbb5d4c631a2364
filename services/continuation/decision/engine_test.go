// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

func openSession() *datatypes.ContinuationSession {
	return &datatypes.ContinuationSession{
		ID:            "s1",
		StartedAt:     time.Now(),
		MaxIterations: 20,
		MaxDuration:   600 * time.Second,
	}
}

func allowed() datatypes.SafetyDecision {
	return datatypes.SafetyDecision{Allow: true, Reason: "plan within safety bounds", Confidence: 0.9}
}

func opp(category datatypes.OpportunityCategory, impact, complexity, composite float64) datatypes.EnhancementOpportunity {
	return datatypes.EnhancementOpportunity{
		Category:         category,
		Description:      "test opportunity",
		EstimatedImpact:  impact,
		Complexity:       complexity,
		QualityPotential: composite,
		CompositeScore:   composite,
	}
}

func TestEngine_SafetyPrecedence(t *testing.T) {
	e := NewEngine()
	strong := opp(datatypes.CategoryQualityImprovement, 0.95, 0.1, 0.95)
	denied := datatypes.SafetyDecision{Allow: false, Reason: "circuit breaker open", Confidence: 1}

	d := e.Decide([]datatypes.EnhancementOpportunity{strong}, openSession(), denied, datatypes.TaskContext{})

	require.False(t, d.Continue, "safety denial overrides any opportunity score")
	assert.Nil(t, d.Selected)
	assert.Contains(t, d.Reasoning, "circuit breaker open")
}

func TestEngine_EmptyOpportunitiesTerminate(t *testing.T) {
	e := NewEngine()
	d := e.Decide(nil, openSession(), allowed(), datatypes.TaskContext{})

	require.False(t, d.Continue)
	assert.Contains(t, d.Reasoning, "no viable enhancement opportunities")
}

func TestEngine_BudgetExhaustedTerminates(t *testing.T) {
	e := NewEngine()
	sess := openSession()
	sess.Iteration = sess.MaxIterations

	d := e.Decide(
		[]datatypes.EnhancementOpportunity{opp(datatypes.CategoryStructural, 0.8, 0.3, 0.7)},
		sess, allowed(), datatypes.TaskContext{})

	require.False(t, d.Continue)
	assert.Contains(t, d.Reasoning, "budget exhausted")
}

func TestEngine_SelectsHighestWeightedScore(t *testing.T) {
	e := NewEngine()
	weak := opp(datatypes.CategoryOptimization, 0.3, 0.6, 0.4)
	strong := opp(datatypes.CategoryQualityImprovement, 0.8, 0.2, 0.7)

	d := e.Decide(
		[]datatypes.EnhancementOpportunity{weak, strong},
		openSession(), allowed(), datatypes.TaskContext{})

	require.True(t, d.Continue)
	require.NotNil(t, d.Selected)
	assert.Equal(t, datatypes.CategoryQualityImprovement, d.Selected.Category)
	assert.NotEmpty(t, d.Reasoning)
}

func TestEngine_TieBreakStableOnIdenticalScores(t *testing.T) {
	e := NewEngine()
	first := opp(datatypes.CategoryStructural, 0.6, 0.5, 0.6)
	second := opp(datatypes.CategoryStructural, 0.6, 0.5, 0.6)

	d := e.Decide([]datatypes.EnhancementOpportunity{first, second}, openSession(), allowed(), datatypes.TaskContext{})

	require.True(t, d.Continue)
	assert.Equal(t, &first, d.Selected, "equal scores keep the original discovery order")
}

func TestEngine_LowerComplexityPreferredAtEqualImpact(t *testing.T) {
	e := NewEngine()
	hard := opp(datatypes.CategoryStructural, 0.6, 0.7, 0.6)
	easy := opp(datatypes.CategoryStructural, 0.6, 0.2, 0.6)

	d := e.Decide([]datatypes.EnhancementOpportunity{hard, easy}, openSession(), allowed(), datatypes.TaskContext{})

	require.True(t, d.Continue)
	assert.Equal(t, 0.2, d.Selected.Complexity)
}

func TestEngine_PreferenceSignalSwaysSelection(t *testing.T) {
	e := NewEngine()
	structural := opp(datatypes.CategoryStructural, 0.6, 0.3, 0.6)
	expansion := opp(datatypes.CategoryContentExpansion, 0.6, 0.3, 0.6)
	tctx := datatypes.TaskContext{
		Preferences: map[datatypes.OpportunityCategory]float64{
			datatypes.CategoryContentExpansion: 0.95,
			datatypes.CategoryStructural:       0.1,
		},
	}

	d := e.Decide([]datatypes.EnhancementOpportunity{structural, expansion}, openSession(), allowed(), tctx)

	require.True(t, d.Continue)
	assert.Equal(t, datatypes.CategoryContentExpansion, d.Selected.Category)
}

func TestEngine_LowCriterionConfidencePenalty(t *testing.T) {
	e := NewEngine()

	balanced := opp(datatypes.CategoryQualityImprovement, 0.6, 0.4, 0.6)
	dBalanced := e.Decide([]datatypes.EnhancementOpportunity{balanced}, openSession(), allowed(), datatypes.TaskContext{})

	lopsided := opp(datatypes.CategoryQualityImprovement, 0.1, 0.4, 0.6)
	dLopsided := e.Decide([]datatypes.EnhancementOpportunity{lopsided}, openSession(), allowed(), datatypes.TaskContext{})

	require.True(t, dBalanced.Continue)
	require.True(t, dLopsided.Continue)
	assert.Greater(t, dBalanced.Confidence, dLopsided.Confidence,
		"a criterion under 0.2 applies the 0.7 penalty on top of variance")
}

func TestEngine_PureFunction(t *testing.T) {
	e := NewEngine()
	opps := []datatypes.EnhancementOpportunity{
		opp(datatypes.CategoryErrorCorrection, 0.7, 0.3, 0.65),
		opp(datatypes.CategoryOptimization, 0.5, 0.6, 0.45),
	}
	sess := openSession()
	tctx := datatypes.TaskContext{Query: "fix the bug"}

	first := e.Decide(opps, sess, allowed(), tctx)
	second := e.Decide(opps, sess, allowed(), tctx)

	assert.Equal(t, first, second, "same inputs must yield the same decision")
}

func TestWeights_Validate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	bad := Weights{Impact: 0.5, Feasibility: 0.5, Preference: 0.5}
	assert.Error(t, bad.Validate())
}

func TestEngine_WithWeightsRejectsInvalid(t *testing.T) {
	e := NewEngine(WithWeights(Weights{Impact: 2}))
	assert.Equal(t, DefaultWeights(), e.weights, "invalid override keeps defaults")
}
