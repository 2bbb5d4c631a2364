// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package discovery finds enhancement opportunities in a task result.
//
// A set of independent analyzers produce raw gaps; gaps are
// cross-referenced pairwise for synergistic combinations, turned into
// opportunities by per-category strategies, scored, filtered against the
// viability threshold, and returned ranked. An empty list is the normal
// signal that nothing worth doing remains, never an error.
package discovery

import (
	"fmt"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// GapKind classifies what an analyzer found lacking.
type GapKind string

const (
	// GapCompleteness marks missing content or coverage.
	GapCompleteness GapKind = "completeness"

	// GapQuality marks a weak quality dimension in the current output.
	GapQuality GapKind = "quality"

	// GapRelevance marks poor use of the query or retrieved context.
	GapRelevance GapKind = "relevance"

	// GapPattern marks a historically productive enhancement category
	// from the cross-session pattern bank.
	GapPattern GapKind = "pattern"

	// GapCombined marks a synergistic pair of gaps merged into one.
	GapCombined GapKind = "combined"
)

// Gap is one analyzer finding: a deficiency the strategies can turn into
// an enhancement opportunity.
type Gap struct {
	// Kind classifies the finding.
	Kind GapKind

	// Category is the opportunity category a fix would fall under.
	Category datatypes.OpportunityCategory

	// Description summarizes the deficiency.
	Description string

	// Severity is how bad the deficiency is, in [0,1].
	Severity float64

	// Relevance is how pertinent fixing it is to the current task, in [0,1].
	Relevance float64

	// Synergy is the score multiplier applied when this gap was combined
	// with a complementary one. 1.0 for plain gaps.
	Synergy float64

	// Source names the analyzer that produced the gap.
	Source string
}

// ref returns the audit reference recorded on opportunities generated
// from this gap.
func (g Gap) ref() string {
	return fmt.Sprintf("%s/%s", g.Source, g.Kind)
}
