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
	"regexp"
	"strings"
	"unicode"
)

// Heuristic signal extraction. Everything here is deterministic over its
// input so repeated scoring of the same candidate yields identical
// assessments. Scores are bounded [0,1] by construction.

var (
	docstringRe   = regexp.MustCompile(`("""|''')`)
	commentLineRe = regexp.MustCompile(`(?m)^\s*(#|//|/\*|\*)`)
	errHandleRe   = regexp.MustCompile(`\b(try|except|catch|rescue|raise|panic|recover)\b|if err != nil|\.catch\(`)
	testMarkerRe  = regexp.MustCompile(`\b(def test_|func Test|assert|expect\(|it\(|describe\()`)
	funcDefRe     = regexp.MustCompile(`(?m)^\s*(def |func |function |fn |public |private )`)
	shortIdentRe  = regexp.MustCompile(`(?m)\b([a-z])\s*(=|:=)\s`)
	bulletRe      = regexp.MustCompile(`(?m)^\s*([-*+]|\d+[.)])\s`)
	headerRe      = regexp.MustCompile(`(?m)^#{1,6}\s|^={3,}$`)
	actionVerbRe  = regexp.MustCompile(`(?i)\b(run|install|configure|add|remove|update|verify|check|create|set|use|apply|review|consider)\b`)
	numberRe      = regexp.MustCompile(`\b\d+(\.\d+)?%?\b`)
)

// docScore rates documentation coverage: docstrings and comment lines
// relative to code volume.
func docScore(src string) float64 {
	lines := countLines(src)
	if lines == 0 {
		return 0
	}
	score := 0.0
	if docstringRe.MatchString(src) {
		score += 0.5
	}
	commentLines := len(commentLineRe.FindAllString(src, -1))
	score += clamp01(float64(commentLines) / (float64(lines) * 0.2) * 0.5)
	return clamp01(score)
}

// errorHandlingScore rates presence of error handling constructs.
func errorHandlingScore(src string) float64 {
	hits := len(errHandleRe.FindAllString(src, -1))
	funcs := len(funcDefRe.FindAllString(src, -1))
	if funcs == 0 {
		funcs = 1
	}
	return clamp01(float64(hits) / float64(funcs))
}

// testScore rates presence of tests or assertions.
func testScore(src string) float64 {
	hits := len(testMarkerRe.FindAllString(src, -1))
	switch {
	case hits == 0:
		return 0
	case hits < 3:
		return 0.6
	default:
		return 1
	}
}

// namingScore penalizes single-letter assignments outside of loop indexes.
func namingScore(src string) float64 {
	short := len(shortIdentRe.FindAllString(src, -1))
	return clamp01(1 - float64(short)*0.15)
}

// structureScore rates whether the code is organized into functions at all.
func structureScore(src string) float64 {
	funcs := len(funcDefRe.FindAllString(src, -1))
	lines := countLines(src)
	switch {
	case funcs == 0 && lines > 5:
		return 0.3
	case funcs == 0:
		return 0.5
	default:
		// Reward decomposition up to a point.
		return clamp01(0.6 + float64(funcs)*0.1)
	}
}

// words splits on non-letter/digit boundaries, lowercased.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// depthScore rates text depth from word volume, saturating at ~300 words.
func depthScore(text string) float64 {
	return clamp01(float64(len(words(text))) / 300)
}

// varietyScore rates lexical variety: unique words over total words.
func varietyScore(text string) float64 {
	ws := words(text)
	if len(ws) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		seen[w] = struct{}{}
	}
	return clamp01(float64(len(seen)) / float64(len(ws)))
}

// overlapScore rates how much of the reference material's vocabulary the
// text covers. Neutral 0.5 when no reference is available.
func overlapScore(text string, references []string) float64 {
	if len(references) == 0 {
		return 0.5
	}
	textWords := make(map[string]struct{})
	for _, w := range words(text) {
		textWords[w] = struct{}{}
	}
	var total, matched int
	for _, ref := range references {
		for _, w := range words(ref) {
			if len(w) < 4 {
				continue
			}
			total++
			if _, ok := textWords[w]; ok {
				matched++
			}
		}
	}
	if total == 0 {
		return 0.5
	}
	return clamp01(float64(matched) / float64(total))
}

// markupScore rates explicit structure: bullets, numbered steps, headers.
func markupScore(text string) float64 {
	score := 0.0
	if bulletRe.MatchString(text) {
		score += 0.5
	}
	if headerRe.MatchString(text) {
		score += 0.3
	}
	if strings.Count(text, "\n\n") >= 1 {
		score += 0.2
	}
	return clamp01(score)
}

// actionabilityScore rates the density of actionable phrasing.
func actionabilityScore(text string) float64 {
	ws := len(words(text))
	if ws == 0 {
		return 0
	}
	hits := len(actionVerbRe.FindAllString(text, -1))
	return clamp01(float64(hits) / (float64(ws) * 0.05))
}

// numericDensityScore rates quantitative grounding for analytics output.
func numericDensityScore(text string) float64 {
	ws := len(words(text))
	if ws == 0 {
		return 0
	}
	hits := len(numberRe.FindAllString(text, -1))
	return clamp01(float64(hits) / (float64(ws) * 0.08))
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

func average(vs ...float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
