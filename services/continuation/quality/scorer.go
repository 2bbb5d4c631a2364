// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quality scores candidate outputs against task-type rubrics.
//
// The scorer is a leaf component: it depends on nothing else in the
// continuation loop. Scoring is deterministic, never raises for
// well-formed string input, and degrades to heuristic-only analysis with
// reduced confidence when a structural parse fails.
package quality

import (
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// Scorer computes multi-dimensional quality assessments.
//
// Thread Safety:
//
//	Safe for concurrent use. The rubric table is immutable after
//	construction and scoring keeps no state.
type Scorer struct {
	logger  *slog.Logger
	rubrics map[datatypes.TaskType]rubric
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the scorer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScorer creates a scorer with the closed per-task-type rubric table.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		logger:  slog.Default(),
		rubrics: buildRubrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score assesses a candidate output relative to the previous accepted
// output.
//
// Description:
//
//	Runs the task type's rubric on the candidate and, when a previous
//	output exists, on the previous output too, reporting the signed
//	overall delta. Identical candidate and previous always yield a
//	delta of exactly 0. Empty candidate output scores 0 overall with
//	confidence 1: the scorer is certain there is nothing worth
//	continuing from.
//
// Inputs:
//
//	candidate - The output under assessment.
//	previous - The previous accepted output, or nil on the first
//	           iteration (no baseline, Delta stays nil).
//	taskType - Selects the rubric.
//	tctx - Contextual signals (query, retrieved snippets).
//
// Outputs:
//
//	datatypes.QualityAssessment - Always well-formed; never an error.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (s *Scorer) Score(candidate string, previous *string, taskType datatypes.TaskType, tctx datatypes.TaskContext) datatypes.QualityAssessment {
	assessment := s.assess(candidate, taskType, tctx)

	if previous != nil {
		var delta float64
		if candidate != *previous {
			prevAssessment := s.assess(*previous, taskType, tctx)
			delta = assessment.Overall - prevAssessment.Overall
		}
		assessment.Delta = &delta
	}

	s.logger.Debug("quality assessment computed",
		"task_type", taskType.String(),
		"overall", assessment.Overall,
		"confidence", assessment.Confidence,
		"has_baseline", assessment.Delta != nil)
	return assessment
}

// assess runs the rubric for one output, without delta computation.
func (s *Scorer) assess(output string, taskType datatypes.TaskType, tctx datatypes.TaskContext) datatypes.QualityAssessment {
	if strings.TrimSpace(output) == "" {
		return datatypes.QualityAssessment{
			Overall: 0,
			Dimensions: map[string]float64{
				datatypes.DimensionContentQuality:   0,
				datatypes.DimensionTechnicalQuality: 0,
			},
			Confidence: 1,
		}
	}

	rb, ok := s.rubrics[taskType]
	confidencePenalty := 1.0
	if !ok {
		// Unknown tag. Score as generic prose rather than failing.
		s.logger.Warn("no rubric for task type, using generic analysis",
			"task_type", taskType.String())
		rb = multimediaRubric{}
		confidencePenalty = 0.5
	}

	result := rb.analyze(output, tctx)

	var overall float64
	for dim, weight := range rb.weights() {
		overall += weight * result.Dimensions[dim]
	}

	return datatypes.QualityAssessment{
		Overall:    clamp01(overall),
		Dimensions: result.Dimensions,
		Confidence: clamp01(result.Confidence * confidencePenalty),
	}
}
