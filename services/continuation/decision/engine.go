// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package decision selects the next continuation action.
//
// Decide is a pure function of its inputs: safety clearance, the ranked
// opportunity list, session state, and context signals. It holds no
// hidden state so every outcome is independently testable. It never
// invokes generation; it only returns the selection.
package decision

import (
	"fmt"
	"math"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// Decision is the engine's verdict for one loop pass.
type Decision struct {
	// Continue indicates another enhancement iteration should run.
	Continue bool

	// Selected is the chosen opportunity when Continue is true.
	Selected *datatypes.EnhancementOpportunity

	// Reasoning explains the verdict for history and logs.
	Reasoning string

	// Confidence reflects how unanimously the criteria favored the
	// winner, in [0,1]. Zero when Continue is false.
	Confidence float64
}

// Weights are the multi-criteria weights. They must sum to 1.
type Weights struct {
	// Impact weighs the enhancement's estimated impact.
	Impact float64

	// Feasibility weighs implementation feasibility (1 - complexity).
	Feasibility float64

	// Preference weighs alignment with observed preference signals.
	Preference float64

	// Relevance weighs contextual relevance to the current task.
	Relevance float64

	// Efficiency weighs expected return per unit of complexity.
	Efficiency float64
}

// DefaultWeights returns the standard deployment weights.
func DefaultWeights() Weights {
	return Weights{
		Impact:      0.30,
		Feasibility: 0.25,
		Preference:  0.20,
		Relevance:   0.15,
		Efficiency:  0.10,
	}
}

// Validate checks the weights sum to 1 within tolerance.
func (w Weights) Validate() error {
	sum := w.Impact + w.Feasibility + w.Preference + w.Relevance + w.Efficiency
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("decision weights must sum to 1, got %f", sum)
	}
	return nil
}

// lowCriterionBar is the score below which any single criterion applies
// the conservative confidence penalty.
const lowCriterionBar = 0.2

// lowCriterionPenalty is the multiplier applied per the bar above.
const lowCriterionPenalty = 0.7

// Engine scores safety-cleared opportunities and picks one or stops.
//
// Thread Safety:
//
//	Safe for concurrent use; the engine is immutable after construction.
type Engine struct {
	weights Weights
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWeights overrides the criteria weights. Invalid weights are
// ignored in favor of the defaults.
func WithWeights(w Weights) EngineOption {
	return func(e *Engine) {
		if err := w.Validate(); err == nil {
			e.weights = w
		}
	}
}

// NewEngine creates a decision engine with the default weights.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide selects the next action.
//
// Description:
//
//	Safety precedence is absolute: a denied clearance returns
//	Continue=false no matter how strong the opportunities score. An
//	empty opportunity list or an exhausted session budget likewise
//	terminates. Otherwise every opportunity is scored on the weighted
//	criteria and the best one is selected; ties break by lower
//	complexity, then by original discovery order.
//
// Inputs:
//
//	opportunities - Ranked list from the discoverer. May be empty.
//	session - Read-only session state.
//	clearance - The safety gate's verdict for this plan.
//	tctx - Context signals, including preference weights.
//
// Outputs:
//
//	Decision - Always well-formed; Reasoning is never empty.
func (e *Engine) Decide(
	opportunities []datatypes.EnhancementOpportunity,
	session *datatypes.ContinuationSession,
	clearance datatypes.SafetyDecision,
	tctx datatypes.TaskContext,
) Decision {
	if !clearance.Allow {
		return Decision{
			Continue:  false,
			Reasoning: fmt.Sprintf("safety gate denied the plan: %s", clearance.Reason),
		}
	}
	if len(opportunities) == 0 {
		return Decision{
			Continue:  false,
			Reasoning: "no viable enhancement opportunities remain",
		}
	}
	if session.BudgetExhausted() {
		return Decision{
			Continue:  false,
			Reasoning: "session resource budget exhausted",
		}
	}

	bestIdx := -1
	bestScore := -1.0
	var bestCriteria []float64
	for i, opp := range opportunities {
		criteria := e.criteriaFor(opp, tctx)
		score := e.weighted(criteria)

		better := score > bestScore
		if score == bestScore && bestIdx >= 0 {
			// Tie-break: lower complexity, then original order (stable).
			better = opp.Complexity < opportunities[bestIdx].Complexity
		}
		if better {
			bestIdx = i
			bestScore = score
			bestCriteria = criteria
		}
	}

	selected := opportunities[bestIdx]
	return Decision{
		Continue: true,
		Selected: &selected,
		Reasoning: fmt.Sprintf("selected %s opportunity (weighted score %.3f of %d candidates)",
			selected.Category, bestScore, len(opportunities)),
		Confidence: confidenceFrom(bestCriteria),
	}
}

// criteriaFor computes the five criterion scores for one opportunity, in
// weight order: impact, feasibility, preference, relevance, efficiency.
func (e *Engine) criteriaFor(opp datatypes.EnhancementOpportunity, tctx datatypes.TaskContext) []float64 {
	// Relevance rides on the composite score, which already folds in the
	// discoverer's context-relevance signal. Efficiency is expected
	// return per unit of implementation cost.
	efficiency := clamp01(opp.EstimatedImpact / (opp.Complexity + 0.5))
	return []float64{
		opp.EstimatedImpact,
		opp.Feasibility(),
		tctx.PreferenceFor(opp.Category),
		opp.CompositeScore,
		efficiency,
	}
}

func (e *Engine) weighted(criteria []float64) float64 {
	return e.weights.Impact*criteria[0] +
		e.weights.Feasibility*criteria[1] +
		e.weights.Preference*criteria[2] +
		e.weights.Relevance*criteria[3] +
		e.weights.Efficiency*criteria[4]
}

// confidenceFrom derives confidence from criterion variance: unanimous
// criteria yield high confidence, disagreement lowers it. Any criterion
// under the low bar applies the conservative penalty.
func confidenceFrom(criteria []float64) float64 {
	var mean float64
	for _, c := range criteria {
		mean += c
	}
	mean /= float64(len(criteria))

	var variance float64
	for _, c := range criteria {
		variance += (c - mean) * (c - mean)
	}
	variance /= float64(len(criteria))

	// Variance of [0,1] values tops out at 0.25; scale to use the range.
	confidence := clamp01(1 - 4*variance)

	for _, c := range criteria {
		if c < lowCriterionBar {
			confidence *= lowCriterionPenalty
			break
		}
	}
	return confidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
