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

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// strategyProfile shapes the opportunity a category's strategy generates
// from a gap. Impact and quality potential scale with gap severity;
// complexity is a property of the kind of work.
type strategyProfile struct {
	// verb leads the generated description.
	verb string

	// baseImpact is the impact floor for a zero-severity gap.
	baseImpact float64

	// impactSlope scales severity into additional impact.
	impactSlope float64

	// complexity is the estimated implementation cost for the category.
	complexity float64
}

// strategyProfiles is the closed per-category strategy table.
var strategyProfiles = map[datatypes.OpportunityCategory]strategyProfile{
	datatypes.CategoryContentExpansion: {
		verb:        "Expand the output to cover",
		baseImpact:  0.35,
		impactSlope: 0.55,
		complexity:  0.5,
	},
	datatypes.CategoryQualityImprovement: {
		verb:        "Polish the output to address",
		baseImpact:  0.3,
		impactSlope: 0.5,
		complexity:  0.3,
	},
	datatypes.CategoryKnowledgeIntegration: {
		verb:        "Integrate retrieved context to resolve",
		baseImpact:  0.35,
		impactSlope: 0.5,
		complexity:  0.45,
	},
	datatypes.CategoryStructural: {
		verb:        "Restructure the output to fix",
		baseImpact:  0.3,
		impactSlope: 0.5,
		complexity:  0.65,
	},
	datatypes.CategoryOptimization: {
		verb:        "Optimize the output to reduce",
		baseImpact:  0.25,
		impactSlope: 0.5,
		complexity:  0.6,
	},
	datatypes.CategoryErrorCorrection: {
		verb:        "Correct the defect behind",
		baseImpact:  0.4,
		impactSlope: 0.5,
		complexity:  0.4,
	},
}

// opportunityFromGap applies the category strategy to one gap.
//
// The composite score is a weighted sum of estimated impact, feasibility
// (1 - complexity), context relevance, and quality potential, multiplied
// by the gap's synergy factor and clamped to [0,1].
func opportunityFromGap(gap Gap) datatypes.EnhancementOpportunity {
	profile, ok := strategyProfiles[gap.Category]
	if !ok {
		profile = strategyProfile{verb: "Improve", baseImpact: 0.3, impactSlope: 0.5, complexity: 0.5}
	}

	impact := clamp01(profile.baseImpact + profile.impactSlope*gap.Severity)
	potential := clamp01(gap.Severity)

	opp := datatypes.EnhancementOpportunity{
		Category:         gap.Category,
		Description:      fmt.Sprintf("%s: %s", profile.verb, gap.Description),
		EstimatedImpact:  impact,
		Complexity:       profile.complexity,
		QualityPotential: potential,
		SourceGap:        gap.ref(),
	}
	opp.CompositeScore = compositeScore(opp, gap.Relevance, gap.Synergy)
	return opp
}

// Composite score weights. Sum to 1 before the synergy multiplier.
const (
	weightImpact      = 0.35
	weightFeasibility = 0.25
	weightRelevance   = 0.20
	weightPotential   = 0.20
)

func compositeScore(opp datatypes.EnhancementOpportunity, relevance, synergy float64) float64 {
	if synergy < 1 {
		synergy = 1
	}
	raw := weightImpact*opp.EstimatedImpact +
		weightFeasibility*opp.Feasibility() +
		weightRelevance*relevance +
		weightPotential*opp.QualityPotential
	return clamp01(raw * synergy)
}
