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
	"strings"
	"unicode"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// analyzer produces zero or more raw gaps for the current result.
// Analyzers are independent of each other; finding nothing is normal.
type analyzer interface {
	name() string
	analyze(result datatypes.TaskResult, assessment datatypes.QualityAssessment, tctx datatypes.TaskContext) []Gap
}

// ---------------------------------------------------------------------------
// Content completeness
// ---------------------------------------------------------------------------

// completenessAnalyzer flags thin output: too few words for the task, or
// no recognizable structure.
type completenessAnalyzer struct{}

func (completenessAnalyzer) name() string { return "completeness" }

func (a completenessAnalyzer) analyze(result datatypes.TaskResult, _ datatypes.QualityAssessment, _ datatypes.TaskContext) []Gap {
	var gaps []Gap
	wordCount := len(termSet(result.Output))

	// Expectations differ by task type: a code answer can legitimately
	// be short, an analytics narrative cannot.
	minWords := 40
	if result.TaskType == datatypes.TaskCode {
		minWords = 15
	}
	if wordCount < minWords {
		severity := clamp01(1 - float64(wordCount)/float64(minWords))
		gaps = append(gaps, Gap{
			Kind:        GapCompleteness,
			Category:    datatypes.CategoryContentExpansion,
			Description: fmt.Sprintf("output is thin (%d terms, expected at least %d)", wordCount, minWords),
			Severity:    severity,
			Relevance:   0.7,
			Synergy:     1,
			Source:      a.name(),
		})
	}

	if len(result.Steps) == 0 && result.TaskType == datatypes.TaskAutomation {
		gaps = append(gaps, Gap{
			Kind:        GapCompleteness,
			Category:    datatypes.CategoryStructural,
			Description: "automation output lists no discrete steps",
			Severity:    0.6,
			Relevance:   0.8,
			Synergy:     1,
			Source:      a.name(),
		})
	}
	return gaps
}

// ---------------------------------------------------------------------------
// Quality gap
// ---------------------------------------------------------------------------

// qualityGapAnalyzer walks the scorer's dimension scores and flags every
// dimension under the bar. This is where the discoverer leans on the
// quality scorer for gap sizing.
type qualityGapAnalyzer struct {
	// bar is the dimension score below which a gap is declared.
	bar float64
}

func (qualityGapAnalyzer) name() string { return "quality_gap" }

// dimensionCategory maps weak dimensions to the category that fixes them.
var dimensionCategory = map[string]datatypes.OpportunityCategory{
	"documentation":  datatypes.CategoryQualityImprovement,
	"naming":         datatypes.CategoryQualityImprovement,
	"clarity":        datatypes.CategoryQualityImprovement,
	"actionability":  datatypes.CategoryQualityImprovement,
	"error_handling": datatypes.CategoryErrorCorrection,
	"tests":          datatypes.CategoryErrorCorrection,
	"complexity":     datatypes.CategoryOptimization,
	"structure":      datatypes.CategoryStructural,
	"depth":          datatypes.CategoryContentExpansion,
	"insight":        datatypes.CategoryContentExpansion,
	"quantitative":   datatypes.CategoryContentExpansion,
	"accuracy":       datatypes.CategoryKnowledgeIntegration,
	"grounding":      datatypes.CategoryKnowledgeIntegration,
	"relevance":      datatypes.CategoryKnowledgeIntegration,
}

func (a qualityGapAnalyzer) analyze(_ datatypes.TaskResult, assessment datatypes.QualityAssessment, _ datatypes.TaskContext) []Gap {
	// Sorted iteration keeps gap order, and therefore the order of fully
	// tied opportunities after the stable sort, identical across runs.
	dims := make([]string, 0, len(assessment.Dimensions))
	for dim := range assessment.Dimensions {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	var gaps []Gap
	for _, dim := range dims {
		score := assessment.Dimensions[dim]
		category, ok := dimensionCategory[dim]
		if !ok {
			// Aggregate dimensions are covered by their detail scores.
			continue
		}
		if score >= a.bar {
			continue
		}
		severity := clamp01((a.bar - score) / a.bar)
		gaps = append(gaps, Gap{
			Kind:        GapQuality,
			Category:    category,
			Description: fmt.Sprintf("dimension %s scored %.2f, below the %.2f bar", dim, score, a.bar),
			Severity:    severity,
			Relevance:   0.6,
			Synergy:     1,
			Source:      a.name(),
		})
	}
	return gaps
}

// ---------------------------------------------------------------------------
// Contextual relevance
// ---------------------------------------------------------------------------

// relevanceAnalyzer checks how well the output uses the query and any
// retrieved context. Inert when neither is available.
type relevanceAnalyzer struct{}

func (relevanceAnalyzer) name() string { return "relevance" }

func (a relevanceAnalyzer) analyze(result datatypes.TaskResult, _ datatypes.QualityAssessment, tctx datatypes.TaskContext) []Gap {
	var gaps []Gap
	outputTerms := termSet(result.Output)

	if tctx.Query != "" {
		missed := missingTerms(tctx.Query, outputTerms)
		if len(missed) > 2 {
			gaps = append(gaps, Gap{
				Kind:     GapRelevance,
				Category: datatypes.CategoryContentExpansion,
				Description: fmt.Sprintf("output does not address query terms: %s",
					strings.Join(missed[:3], ", ")),
				Severity:  clamp01(float64(len(missed)) * 0.2),
				Relevance: 0.9,
				Synergy:   1,
				Source:    a.name(),
			})
		}
	}

	if len(tctx.Snippets) > 0 {
		var missedSnippets int
		for _, snippet := range tctx.Snippets {
			if len(missingTerms(snippet, outputTerms)) > len(termSet(snippet))/2 {
				missedSnippets++
			}
		}
		if missedSnippets > 0 {
			gaps = append(gaps, Gap{
				Kind:     GapRelevance,
				Category: datatypes.CategoryKnowledgeIntegration,
				Description: fmt.Sprintf("%d of %d retrieved context snippets are unused",
					missedSnippets, len(tctx.Snippets)),
				Severity:  clamp01(float64(missedSnippets) / float64(len(tctx.Snippets))),
				Relevance: 0.8,
				Synergy:   1,
				Source:    a.name(),
			})
		}
	}
	return gaps
}

// ---------------------------------------------------------------------------
// Pattern based
// ---------------------------------------------------------------------------

// PatternSource is the read side of the cross-session learning memory.
// Injected explicitly so discovery stays pure over its inputs; a nil
// source simply disables the pattern analyzer.
type PatternSource interface {
	// SuccessRate reports the historical acceptance rate for enhancements
	// of the category on the task type, and how many samples back it.
	SuccessRate(taskType datatypes.TaskType, category datatypes.OpportunityCategory) (rate float64, samples int, err error)
}

// patternAnalyzer suggests categories that historically paid off for this
// task type, per the pattern bank.
type patternAnalyzer struct {
	source PatternSource

	// minSamples gates suggestions on having seen enough history.
	minSamples int

	// minRate gates suggestions on the category actually succeeding.
	minRate float64
}

func (patternAnalyzer) name() string { return "pattern" }

func (a patternAnalyzer) analyze(result datatypes.TaskResult, _ datatypes.QualityAssessment, _ datatypes.TaskContext) []Gap {
	if a.source == nil {
		return nil
	}
	var gaps []Gap
	for _, category := range datatypes.AllCategories() {
		rate, samples, err := a.source.SuccessRate(result.TaskType, category)
		if err != nil || samples < a.minSamples || rate < a.minRate {
			continue
		}
		gaps = append(gaps, Gap{
			Kind:     GapPattern,
			Category: category,
			Description: fmt.Sprintf("%s enhancements succeeded %.0f%% of the time for %s tasks (%d samples)",
				category, rate*100, result.TaskType, samples),
			Severity:  clamp01(rate * 0.6),
			Relevance: clamp01(rate),
			Synergy:   1,
			Source:    a.name(),
		})
	}
	return gaps
}

// ---------------------------------------------------------------------------
// Shared term helpers
// ---------------------------------------------------------------------------

// termSet returns the set of lowercased terms of length >= 4.
func termSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range splitTerms(s) {
		if len(w) >= 4 {
			set[w] = struct{}{}
		}
	}
	return set
}

// missingTerms returns the terms of s absent from the given set, in
// first-seen order.
func missingTerms(s string, present map[string]struct{}) []string {
	var missed []string
	seen := make(map[string]struct{})
	for _, w := range splitTerms(s) {
		if len(w) < 4 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := present[w]; !ok {
			missed = append(missed, w)
		}
	}
	return missed
}

func splitTerms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
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
