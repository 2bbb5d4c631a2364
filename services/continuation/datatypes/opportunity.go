// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"errors"
	"fmt"
)

// ErrInvalidCategory indicates an opportunity category outside the closed set.
var ErrInvalidCategory = errors.New("invalid opportunity category")

// OpportunityCategory classifies a candidate enhancement.
type OpportunityCategory string

const (
	// CategoryContentExpansion adds missing content or coverage.
	CategoryContentExpansion OpportunityCategory = "content_expansion"

	// CategoryQualityImprovement raises quality of existing content
	// (documentation, naming, clarity).
	CategoryQualityImprovement OpportunityCategory = "quality_improvement"

	// CategoryKnowledgeIntegration weaves in retrieved context.
	CategoryKnowledgeIntegration OpportunityCategory = "knowledge_integration"

	// CategoryStructural reorganizes the output's structure.
	CategoryStructural OpportunityCategory = "structural"

	// CategoryOptimization improves efficiency of the output itself.
	CategoryOptimization OpportunityCategory = "optimization"

	// CategoryErrorCorrection fixes detected defects.
	CategoryErrorCorrection OpportunityCategory = "error_correction"
)

// String returns the category as a string.
func (c OpportunityCategory) String() string {
	return string(c)
}

// IsValid reports whether the category is one of the closed set.
func (c OpportunityCategory) IsValid() bool {
	switch c {
	case CategoryContentExpansion, CategoryQualityImprovement,
		CategoryKnowledgeIntegration, CategoryStructural,
		CategoryOptimization, CategoryErrorCorrection:
		return true
	default:
		return false
	}
}

// AllCategories returns every valid opportunity category.
func AllCategories() []OpportunityCategory {
	return []OpportunityCategory{
		CategoryContentExpansion,
		CategoryQualityImprovement,
		CategoryKnowledgeIntegration,
		CategoryStructural,
		CategoryOptimization,
		CategoryErrorCorrection,
	}
}

// EnhancementOpportunity is one candidate way to improve the current output.
//
// Description:
//
//	Produced fresh by the discoverer on every loop pass and discarded
//	once the decision engine consumes it. Opportunities are never carried
//	across iterations because relevance shifts as the result evolves.
type EnhancementOpportunity struct {
	// Category classifies the enhancement.
	Category OpportunityCategory `json:"category"`

	// Description is a human-readable summary of the enhancement.
	Description string `json:"description"`

	// EstimatedImpact is the expected benefit in [0,1].
	EstimatedImpact float64 `json:"estimated_impact"`

	// Complexity is the implementation cost in [0,1]. Feasibility is
	// derived as 1 - Complexity.
	Complexity float64 `json:"complexity"`

	// QualityPotential is the expected quality-score headroom in [0,1].
	QualityPotential float64 `json:"quality_potential"`

	// CompositeScore is the derived ranking score in [0,1].
	CompositeScore float64 `json:"composite_score"`

	// SourceGap references the gap this opportunity was generated from.
	SourceGap string `json:"source_gap,omitempty"`
}

// Feasibility returns 1 - Complexity.
func (o EnhancementOpportunity) Feasibility() float64 {
	return 1 - o.Complexity
}

// Validate checks that the category is valid and every score is in [0,1].
func (o EnhancementOpportunity) Validate() error {
	if !o.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, o.Category)
	}
	for name, v := range map[string]float64{
		"estimated_impact":  o.EstimatedImpact,
		"complexity":        o.Complexity,
		"quality_potential": o.QualityPotential,
		"composite_score":   o.CompositeScore,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("opportunity %s out of range [0,1]: %f", name, v)
		}
	}
	return nil
}
