// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package discovery

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// stubAssessor returns a fixed assessment regardless of input.
type stubAssessor struct {
	dims map[string]float64
}

func (s stubAssessor) Score(_ string, _ *string, _ datatypes.TaskType, _ datatypes.TaskContext) datatypes.QualityAssessment {
	return datatypes.QualityAssessment{
		Overall:    0.5,
		Dimensions: s.dims,
		Confidence: 0.9,
	}
}

// stubPatterns serves a fixed success rate for one category.
type stubPatterns struct {
	category datatypes.OpportunityCategory
	rate     float64
	samples  int
	err      error
}

func (s stubPatterns) SuccessRate(_ datatypes.TaskType, category datatypes.OpportunityCategory) (float64, int, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	if category == s.category {
		return s.rate, s.samples, nil
	}
	return 0, 0, nil
}

func goodDims() map[string]float64 {
	return map[string]float64{
		datatypes.DimensionContentQuality:   0.9,
		datatypes.DimensionTechnicalQuality: 0.9,
		"documentation":                     0.9,
		"error_handling":                    0.9,
		"structure":                         0.9,
	}
}

func weakDims() map[string]float64 {
	return map[string]float64{
		datatypes.DimensionContentQuality:   0.3,
		datatypes.DimensionTechnicalQuality: 0.3,
		"documentation":                     0.1,
		"error_handling":                    0.1,
		"structure":                         0.2,
		"depth":                             0.2,
		"accuracy":                          0.1,
		"complexity":                        0.1,
	}
}

// richOutput clears the completeness analyzer's term floor.
func richOutput() string {
	terms := make([]string, 50)
	for i := range terms {
		terms[i] = fmt.Sprintf("distinctterm%02d", i)
	}
	return strings.Join(terms, " ")
}

func TestDiscoverer_RankedBoundedValid(t *testing.T) {
	d := NewDiscoverer(stubAssessor{dims: weakDims()}, datatypes.NewConfig())
	opps := d.Discover(
		datatypes.TaskResult{Output: "tiny", TaskType: datatypes.TaskCode},
		datatypes.TaskContext{})

	require.NotEmpty(t, opps)
	for i, opp := range opps {
		require.NoError(t, opp.Validate())
		if i > 0 {
			assert.LessOrEqual(t, opp.CompositeScore, opps[i-1].CompositeScore,
				"list must be ordered by descending composite score")
		}
		assert.NotEmpty(t, opp.SourceGap)
	}
}

func TestDiscoverer_EmptyListIsNormalStop(t *testing.T) {
	d := NewDiscoverer(stubAssessor{dims: goodDims()}, datatypes.NewConfig())
	opps := d.Discover(
		datatypes.TaskResult{Output: richOutput(), TaskType: datatypes.TaskAnalytics},
		datatypes.TaskContext{})

	assert.Empty(t, opps, "excellent output yields no opportunities, not an error")
}

func TestDiscoverer_TruncatesToMax(t *testing.T) {
	cfg := datatypes.NewConfig()
	cfg.MaxOpportunities = 3

	d := NewDiscoverer(stubAssessor{dims: weakDims()}, cfg)
	opps := d.Discover(
		datatypes.TaskResult{Output: "tiny", TaskType: datatypes.TaskCode},
		datatypes.TaskContext{})

	assert.Len(t, opps, 3)
}

func TestDiscoverer_ViabilityThresholdFilters(t *testing.T) {
	cfg := datatypes.NewConfig()
	cfg.MinViability = 0.99

	d := NewDiscoverer(stubAssessor{dims: weakDims()}, cfg)
	opps := d.Discover(
		datatypes.TaskResult{Output: "tiny", TaskType: datatypes.TaskCode},
		datatypes.TaskContext{})

	assert.Empty(t, opps)
}

func TestDiscoverer_TiedScoresOrderIsStable(t *testing.T) {
	// Five dimensions with identical scores produce fully tied composite
	// scores; their relative order must not vary between runs.
	tied := map[string]float64{
		"documentation":  0.1,
		"error_handling": 0.1,
		"structure":      0.1,
		"depth":          0.1,
		"accuracy":       0.1,
	}
	d := NewDiscoverer(stubAssessor{dims: tied}, datatypes.NewConfig())
	result := datatypes.TaskResult{Output: richOutput(), TaskType: datatypes.TaskCode}

	first := d.Discover(result, datatypes.TaskContext{})
	require.NotEmpty(t, first)

	for run := 0; run < 50; run++ {
		again := d.Discover(result, datatypes.TaskContext{})
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].SourceGap, again[i].SourceGap)
			assert.Equal(t, first[i].Description, again[i].Description,
				"run %d reordered tied opportunities at index %d", run, i)
		}
	}
}

func TestQualityGapAnalyzer_SortedDimensionOrder(t *testing.T) {
	a := qualityGapAnalyzer{bar: 0.6}
	assessment := datatypes.QualityAssessment{
		Dimensions: map[string]float64{
			"structure":      0.2,
			"accuracy":       0.2,
			"documentation":  0.2,
			"error_handling": 0.2,
		},
	}

	gaps := a.analyze(datatypes.TaskResult{}, assessment, datatypes.TaskContext{})

	require.Len(t, gaps, 4)
	want := []string{"accuracy", "documentation", "error_handling", "structure"}
	for i, dim := range want {
		assert.Contains(t, gaps[i].Description, dim)
	}
}

func TestDiscoverer_CategoryFilter(t *testing.T) {
	cfg := datatypes.NewConfig()
	cfg.EnabledCategories = []datatypes.OpportunityCategory{datatypes.CategoryStructural}

	d := NewDiscoverer(stubAssessor{dims: weakDims()}, cfg)
	opps := d.Discover(
		datatypes.TaskResult{Output: "tiny", TaskType: datatypes.TaskCode},
		datatypes.TaskContext{})

	for _, opp := range opps {
		assert.Equal(t, datatypes.CategoryStructural, opp.Category)
	}
}

func TestDiscoverer_PatternSourceSuggestions(t *testing.T) {
	source := stubPatterns{
		category: datatypes.CategoryQualityImprovement,
		rate:     0.85,
		samples:  12,
	}

	d := NewDiscoverer(stubAssessor{dims: goodDims()}, datatypes.NewConfig(),
		WithPatternSource(source))
	opps := d.Discover(
		datatypes.TaskResult{Output: richOutput(), TaskType: datatypes.TaskCode},
		datatypes.TaskContext{})

	require.NotEmpty(t, opps, "pattern bank history should surface an opportunity")
	found := false
	for _, opp := range opps {
		if strings.HasPrefix(opp.SourceGap, "pattern/") {
			found = true
			assert.Equal(t, datatypes.CategoryQualityImprovement, opp.Category)
		}
	}
	assert.True(t, found)
}

func TestDiscoverer_PatternSourceErrorsIgnored(t *testing.T) {
	source := stubPatterns{err: fmt.Errorf("store offline")}

	d := NewDiscoverer(stubAssessor{dims: goodDims()}, datatypes.NewConfig(),
		WithPatternSource(source))
	opps := d.Discover(
		datatypes.TaskResult{Output: richOutput(), TaskType: datatypes.TaskCode},
		datatypes.TaskContext{})

	assert.Empty(t, opps, "an unreachable pattern bank degrades to no suggestions")
}

func TestCrossReference_SynergisticPair(t *testing.T) {
	gaps := []Gap{
		{Kind: GapCompleteness, Category: datatypes.CategoryContentExpansion,
			Description: "thin", Severity: 0.5, Relevance: 0.7, Synergy: 1, Source: "completeness"},
		{Kind: GapQuality, Category: datatypes.CategoryQualityImprovement,
			Description: "weak docs", Severity: 0.7, Relevance: 0.6, Synergy: 1, Source: "quality_gap"},
	}

	out := crossReference(gaps)
	require.Len(t, out, 3, "originals kept, one combined gap appended")

	combined := out[2]
	assert.Equal(t, GapCombined, combined.Kind)
	assert.Equal(t, synergyFactor, combined.Synergy)
	assert.InDelta(t, 0.85, combined.Severity, 1e-9, "dominant severity plus boost")
	assert.Equal(t, datatypes.CategoryQualityImprovement, combined.Category)
}

func TestCrossReference_NoPairNoCombination(t *testing.T) {
	gaps := []Gap{
		{Category: datatypes.CategoryOptimization, Severity: 0.5, Synergy: 1},
		{Category: datatypes.CategoryKnowledgeIntegration, Severity: 0.5, Synergy: 1},
	}
	assert.Len(t, crossReference(gaps), 2)
}

func TestCompositeScore_ClampedToOne(t *testing.T) {
	opp := datatypes.EnhancementOpportunity{
		EstimatedImpact:  1,
		Complexity:       0,
		QualityPotential: 1,
	}
	score := compositeScore(opp, 1, 5.0)
	assert.Equal(t, 1.0, score, "synergy is uncapped but the composite clamps")
}

func TestOpportunityFromGap_Fields(t *testing.T) {
	gap := Gap{
		Kind:        GapQuality,
		Category:    datatypes.CategoryErrorCorrection,
		Description: "dimension error_handling scored 0.10",
		Severity:    0.8,
		Relevance:   0.6,
		Synergy:     1,
		Source:      "quality_gap",
	}

	opp := opportunityFromGap(gap)
	require.NoError(t, opp.Validate())
	assert.Equal(t, "quality_gap/quality", opp.SourceGap)
	assert.Equal(t, 0.4, opp.Complexity)
	assert.InDelta(t, 0.8, opp.EstimatedImpact, 1e-9)
	assert.Equal(t, 0.8, opp.QualityPotential)
}
