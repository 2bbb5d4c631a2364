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
	"log/slog"
	"sort"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// Assessor is the slice of the quality scorer the discoverer needs for
// gap sizing.
type Assessor interface {
	Score(candidate string, previous *string, taskType datatypes.TaskType, tctx datatypes.TaskContext) datatypes.QualityAssessment
}

// Discoverer turns a task result into a ranked list of enhancement
// opportunities.
//
// Description:
//
//	Runs the analyzer set, cross-references gaps for synergy, applies
//	per-category strategies, scores, filters, and ranks. Re-run fresh
//	every loop pass; opportunities are never carried across iterations.
//
// Thread Safety:
//
//	Safe for concurrent use. All state is immutable after construction;
//	the pattern source is read-only.
type Discoverer struct {
	logger    *slog.Logger
	assessor  Assessor
	analyzers []analyzer

	maxOpportunities int
	minViability     float64
	categoryEnabled  func(datatypes.OpportunityCategory) bool
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithDiscovererLogger sets the logger.
func WithDiscovererLogger(logger *slog.Logger) DiscovererOption {
	return func(d *Discoverer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithPatternSource wires the cross-session learning memory into the
// pattern analyzer. Nil disables pattern-based discovery.
func WithPatternSource(source PatternSource) DiscovererOption {
	return func(d *Discoverer) {
		d.analyzers = append(d.analyzers, patternAnalyzer{
			source:     source,
			minSamples: 3,
			minRate:    0.6,
		})
	}
}

// NewDiscoverer creates a discoverer with the standard analyzer set.
//
// Inputs:
//
//	assessor - Quality scorer used for gap sizing. Must not be nil.
//	cfg - Continuation config supplying the cap, viability threshold,
//	      and enabled categories.
//	opts - Optional logger and pattern source.
func NewDiscoverer(assessor Assessor, cfg datatypes.Config, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		logger:   slog.Default(),
		assessor: assessor,
		analyzers: []analyzer{
			completenessAnalyzer{},
			qualityGapAnalyzer{bar: 0.6},
			relevanceAnalyzer{},
		},
		maxOpportunities: cfg.MaxOpportunities,
		minViability:     cfg.MinViability,
		categoryEnabled:  cfg.CategoryEnabled,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover produces the ranked opportunity list for the current result.
//
// Description:
//
//	An empty list is the normal stop signal: it means no analyzer found
//	anything viable, not that discovery failed.
//
// Outputs:
//
//	[]datatypes.EnhancementOpportunity - Ordered by descending composite
//	score, ties broken by lower complexity then higher estimated impact,
//	truncated to the configured maximum.
func (d *Discoverer) Discover(result datatypes.TaskResult, tctx datatypes.TaskContext) []datatypes.EnhancementOpportunity {
	assessment := d.assessor.Score(result.Output, nil, result.TaskType, tctx)

	var gaps []Gap
	for _, a := range d.analyzers {
		found := a.analyze(result, assessment, tctx)
		gaps = append(gaps, found...)
	}
	gaps = crossReference(gaps)

	var opportunities []datatypes.EnhancementOpportunity
	for _, gap := range gaps {
		if !d.categoryEnabled(gap.Category) {
			continue
		}
		opp := opportunityFromGap(gap)
		if opp.CompositeScore < d.minViability {
			continue
		}
		opportunities = append(opportunities, opp)
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		a, b := opportunities[i], opportunities[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.Complexity != b.Complexity {
			return a.Complexity < b.Complexity
		}
		return a.EstimatedImpact > b.EstimatedImpact
	})

	if len(opportunities) > d.maxOpportunities {
		opportunities = opportunities[:d.maxOpportunities]
	}

	d.logger.Debug("discovery pass complete",
		"gaps", len(gaps),
		"opportunities", len(opportunities),
		"task_type", result.TaskType.String())
	return opportunities
}
