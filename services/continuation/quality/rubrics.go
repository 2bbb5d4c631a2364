// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quality

import (
	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// Detail dimension names emitted by the rubrics alongside the two
// aggregate dimensions.
const (
	DimDocumentation = "documentation"
	DimErrorHandling = "error_handling"
	DimTests         = "tests"
	DimComplexity    = "complexity"
	DimNaming        = "naming"
	DimDepth         = "depth"
	DimInsight       = "insight"
	DimAccuracy      = "accuracy"
	DimActionability = "actionability"
	DimRelevance     = "relevance"
	DimGrounding     = "grounding"
	DimClarity       = "clarity"
	DimStructure     = "structure"
	DimQuantitative  = "quantitative"
)

// rubricResult is the raw output of one rubric's analysis pass.
type rubricResult struct {
	// Dimensions always contains content_quality and technical_quality;
	// the rest are informational detail scores.
	Dimensions map[string]float64

	// Confidence is the rubric's confidence in its own analysis.
	// Lowered when a structural parse failed and heuristics took over.
	Confidence float64
}

// rubric analyzes one task type's output. The set of rubrics is closed:
// dispatch is a map lookup keyed by task type, and adding a task type
// means adding one rubric here, never touching the scorer.
type rubric interface {
	// analyze extracts dimension scores from the output. Must be
	// deterministic and must never return scores outside [0,1].
	analyze(output string, tctx datatypes.TaskContext) rubricResult

	// weights returns the aggregate weights over content_quality and
	// technical_quality. Sums to 1.
	weights() map[string]float64
}

// buildRubrics returns the closed task-type dispatch table.
func buildRubrics() map[datatypes.TaskType]rubric {
	return map[datatypes.TaskType]rubric{
		datatypes.TaskCode:       codeRubric{},
		datatypes.TaskMultimedia: multimediaRubric{},
		datatypes.TaskDocumentQA: documentQARubric{},
		datatypes.TaskAutomation: automationRubric{},
		datatypes.TaskAnalytics:  analyticsRubric{},
	}
}

// ---------------------------------------------------------------------------
// Code
// ---------------------------------------------------------------------------

// codeRubric scores generated source code. Go source gets a real
// structural parse via tree-sitter; everything else, and anything that
// fails to parse, goes through language-agnostic heuristics at reduced
// confidence.
type codeRubric struct{}

func (codeRubric) weights() map[string]float64 {
	return map[string]float64{
		datatypes.DimensionTechnicalQuality: 0.6,
		datatypes.DimensionContentQuality:   0.4,
	}
}

func (codeRubric) analyze(output string, _ datatypes.TaskContext) rubricResult {
	if looksLikeGo(output) {
		if m, err := analyzeGoStructure(output); err == nil {
			return scoreParsedGo(output, m)
		}
	}
	// Heuristic fallback: non-Go source or a failed parse.
	dims := map[string]float64{
		DimDocumentation: docScore(output),
		DimErrorHandling: errorHandlingScore(output),
		DimTests:         testScore(output),
		DimStructure:     structureScore(output),
		DimNaming:        namingScore(output),
	}
	dims[datatypes.DimensionTechnicalQuality] = average(
		dims[DimStructure], dims[DimErrorHandling], dims[DimTests])
	dims[datatypes.DimensionContentQuality] = average(
		dims[DimDocumentation], dims[DimNaming])
	return rubricResult{Dimensions: dims, Confidence: 0.6}
}

func scoreParsedGo(src string, m codeMetrics) rubricResult {
	funcs := m.Functions
	if funcs == 0 {
		funcs = 1
	}
	complexity := clamp01(1 - 0.15*float64(maxInt(0, m.MaxNestDepth-2)))
	errH := clamp01(float64(m.ErrorChecks) / float64(funcs))
	docs := clamp01(float64(m.DocComments) / float64(funcs))
	tests := 0.0
	switch {
	case m.TestFunctions >= 3:
		tests = 1
	case m.TestFunctions > 0:
		tests = 0.6
	}

	dims := map[string]float64{
		DimComplexity:    complexity,
		DimErrorHandling: errH,
		DimTests:         tests,
		DimDocumentation: docs,
		DimNaming:        namingScore(src),
	}
	dims[datatypes.DimensionTechnicalQuality] = average(complexity, errH, tests)
	dims[datatypes.DimensionContentQuality] = average(docs, dims[DimNaming])
	return rubricResult{Dimensions: dims, Confidence: 0.95}
}

// ---------------------------------------------------------------------------
// Multimedia analysis
// ---------------------------------------------------------------------------

// multimediaRubric scores multimedia-analysis narratives: depth, insight
// novelty, accuracy against retrieved reference material when present,
// and actionability.
type multimediaRubric struct{}

func (multimediaRubric) weights() map[string]float64 {
	return map[string]float64{
		datatypes.DimensionContentQuality:   0.6,
		datatypes.DimensionTechnicalQuality: 0.4,
	}
}

func (multimediaRubric) analyze(output string, tctx datatypes.TaskContext) rubricResult {
	dims := map[string]float64{
		DimDepth:         depthScore(output),
		DimInsight:       varietyScore(output),
		DimAccuracy:      overlapScore(output, tctx.Snippets),
		DimActionability: actionabilityScore(output),
	}
	dims[datatypes.DimensionContentQuality] = average(dims[DimDepth], dims[DimInsight])
	dims[datatypes.DimensionTechnicalQuality] = average(dims[DimAccuracy], dims[DimActionability])
	return rubricResult{Dimensions: dims, Confidence: 0.8}
}

// ---------------------------------------------------------------------------
// Document question answering
// ---------------------------------------------------------------------------

// documentQARubric scores answers against the query and the retrieved
// source passages.
type documentQARubric struct{}

func (documentQARubric) weights() map[string]float64 {
	return map[string]float64{
		datatypes.DimensionContentQuality:   0.5,
		datatypes.DimensionTechnicalQuality: 0.5,
	}
}

func (documentQARubric) analyze(output string, tctx datatypes.TaskContext) rubricResult {
	var queryRef []string
	if tctx.Query != "" {
		queryRef = []string{tctx.Query}
	}
	dims := map[string]float64{
		DimRelevance: overlapScore(output, queryRef),
		DimGrounding: overlapScore(output, tctx.Snippets),
		DimDepth:     depthScore(output),
		DimClarity:   average(markupScore(output), varietyScore(output)),
	}
	dims[datatypes.DimensionContentQuality] = average(dims[DimRelevance], dims[DimDepth])
	dims[datatypes.DimensionTechnicalQuality] = average(dims[DimGrounding], dims[DimClarity])
	return rubricResult{Dimensions: dims, Confidence: 0.8}
}

// ---------------------------------------------------------------------------
// Automation scripting
// ---------------------------------------------------------------------------

// automationRubric scores step-by-step automation plans and scripts.
type automationRubric struct{}

func (automationRubric) weights() map[string]float64 {
	return map[string]float64{
		datatypes.DimensionTechnicalQuality: 0.55,
		datatypes.DimensionContentQuality:   0.45,
	}
}

func (automationRubric) analyze(output string, _ datatypes.TaskContext) rubricResult {
	dims := map[string]float64{
		DimStructure:     markupScore(output),
		DimErrorHandling: errorHandlingScore(output),
		DimActionability: actionabilityScore(output),
		DimClarity:       varietyScore(output),
	}
	dims[datatypes.DimensionTechnicalQuality] = average(dims[DimStructure], dims[DimErrorHandling])
	dims[datatypes.DimensionContentQuality] = average(dims[DimActionability], dims[DimClarity])
	return rubricResult{Dimensions: dims, Confidence: 0.8}
}

// ---------------------------------------------------------------------------
// Data analytics
// ---------------------------------------------------------------------------

// analyticsRubric scores analytics narratives: quantitative grounding,
// structure, depth, actionability.
type analyticsRubric struct{}

func (analyticsRubric) weights() map[string]float64 {
	return map[string]float64{
		datatypes.DimensionTechnicalQuality: 0.5,
		datatypes.DimensionContentQuality:   0.5,
	}
}

func (analyticsRubric) analyze(output string, _ datatypes.TaskContext) rubricResult {
	dims := map[string]float64{
		DimQuantitative:  numericDensityScore(output),
		DimStructure:     markupScore(output),
		DimDepth:         depthScore(output),
		DimActionability: actionabilityScore(output),
	}
	dims[datatypes.DimensionTechnicalQuality] = average(dims[DimQuantitative], dims[DimStructure])
	dims[datatypes.DimensionContentQuality] = average(dims[DimDepth], dims[DimActionability])
	return rubricResult{Dimensions: dims, Confidence: 0.8}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
