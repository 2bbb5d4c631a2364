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
	"sort"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// synergyFactor is the score multiplier applied to a combined gap.
// Composite scores are clamped to [0,1] after multiplication, so the
// factor needs no cap of its own.
const synergyFactor = 1.25

// synergyBoost is added to the dominant severity when two complementary
// gaps are merged: fixing both together is worth more than either alone.
const synergyBoost = 0.15

// synergisticPairs lists category combinations whose joint repair
// compounds. Order-independent; pairKey normalizes.
var synergisticPairs = map[string]struct{}{
	pairKey(datatypes.CategoryContentExpansion, datatypes.CategoryQualityImprovement):   {},
	pairKey(datatypes.CategoryContentExpansion, datatypes.CategoryKnowledgeIntegration): {},
	pairKey(datatypes.CategoryErrorCorrection, datatypes.CategoryOptimization):          {},
	pairKey(datatypes.CategoryStructural, datatypes.CategoryQualityImprovement):         {},
}

func pairKey(a, b datatypes.OpportunityCategory) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "+" + string(b)
}

// crossReference scans gap pairs for synergistic combinations and appends
// one combined gap per distinct category pair found. Original gaps are
// kept; the combined gap competes with them on score.
func crossReference(gaps []Gap) []Gap {
	combined := make(map[string]Gap)
	for i := 0; i < len(gaps); i++ {
		for j := i + 1; j < len(gaps); j++ {
			a, b := gaps[i], gaps[j]
			if a.Category == b.Category {
				continue
			}
			key := pairKey(a.Category, b.Category)
			if _, ok := synergisticPairs[key]; !ok {
				continue
			}
			if _, dup := combined[key]; dup {
				continue
			}

			dominant := a
			if b.Severity > a.Severity {
				dominant = b
			}
			combined[key] = Gap{
				Kind:     GapCombined,
				Category: dominant.Category,
				Description: fmt.Sprintf("combined: %s; and: %s",
					a.Description, b.Description),
				Severity:  clamp01(dominant.Severity + synergyBoost),
				Relevance: maxFloat(a.Relevance, b.Relevance),
				Synergy:   synergyFactor,
				Source:    "synergy",
			}
		}
	}

	out := make([]Gap, 0, len(gaps)+len(combined))
	out = append(out, gaps...)
	for _, key := range sortedKeys(combined) {
		out = append(out, combined[key])
	}
	return out
}

// sortedKeys keeps combined-gap ordering deterministic.
func sortedKeys(m map[string]Gap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
