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

import "fmt"

// Dimension names present in every assessment regardless of task type.
// Rubrics add task-specific dimensions alongside these.
const (
	DimensionContentQuality   = "content_quality"
	DimensionTechnicalQuality = "technical_quality"
)

// QualityAssessment is the quality scorer's verdict on one candidate output.
//
// Description:
//
//	Overall is a weighted aggregate of the per-dimension scores; the
//	weights belong to the task-type rubric and sum to 1. Delta is the
//	signed difference against the previous accepted result, or nil on
//	the first iteration when no baseline exists.
//
// Thread Safety:
//
//	Value type, computed fresh per iteration and never re-mutated.
type QualityAssessment struct {
	// Overall is the aggregate score in [0,1].
	Overall float64 `json:"overall"`

	// Dimensions maps dimension name to its score in [0,1]. Always
	// includes content_quality and technical_quality.
	Dimensions map[string]float64 `json:"dimensions"`

	// Delta is overall(candidate) - overall(previous). Nil when there is
	// no baseline (first iteration).
	Delta *float64 `json:"delta,omitempty"`

	// Confidence is the scorer's confidence in [0,1]. Lowered when the
	// scorer had to fall back to heuristic-only analysis.
	Confidence float64 `json:"confidence"`
}

// HasBaseline reports whether a previous assessment existed.
func (a QualityAssessment) HasBaseline() bool {
	return a.Delta != nil
}

// DeltaOrZero returns the delta, or 0 when no baseline exists.
func (a QualityAssessment) DeltaOrZero() float64 {
	if a.Delta == nil {
		return 0
	}
	return *a.Delta
}

// Validate checks that the overall score, confidence, and every dimension
// score lie in [0,1]. A violation here is an implementation bug, not a
// runtime condition.
func (a QualityAssessment) Validate() error {
	if a.Overall < 0 || a.Overall > 1 {
		return fmt.Errorf("overall score out of range [0,1]: %f", a.Overall)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence out of range [0,1]: %f", a.Confidence)
	}
	for name, v := range a.Dimensions {
		if v < 0 || v > 1 {
			return fmt.Errorf("dimension %q out of range [0,1]: %f", name, v)
		}
	}
	return nil
}
