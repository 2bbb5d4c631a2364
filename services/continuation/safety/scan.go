// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package safety

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

//go:embed enforcement/patterns.yaml
var embeddedPatterns []byte

// Severity ranks a content-safety finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the severity as an ordinal, critical highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// UnmarshalYAML validates the severity while loading the pattern file.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed := Severity(raw)
	if parsed.Rank() == 0 {
		return fmt.Errorf("unknown severity %q", raw)
	}
	*s = parsed
	return nil
}

// ScanPattern is one compiled content-safety rule.
type ScanPattern struct {
	// Name identifies the rule in findings and audit reasons.
	Name string `yaml:"name"`

	// Category groups related rules (secret, unsafe_code, privilege).
	Category string `yaml:"category"`

	// Severity drives the stop decision.
	Severity Severity `yaml:"severity"`

	// Regex is the raw pattern source.
	Regex string `yaml:"regex"`

	compiled *regexp.Regexp
}

type patternFile struct {
	Patterns []ScanPattern `yaml:"patterns"`
}

// Finding is one content-safety hit.
type Finding struct {
	// Pattern is the rule name that matched.
	Pattern string

	// Category is the rule's category.
	Category string

	// Severity is the rule's severity.
	Severity Severity

	// Match is the matched text, truncated for audit.
	Match string
}

// ContentScanner runs the embedded pattern set over generated content.
//
// Thread Safety:
//
//	Safe for concurrent use after construction.
type ContentScanner struct {
	patterns []ScanPattern
}

// NewContentScanner loads and compiles the embedded pattern file.
//
// Outputs:
//
//	*ContentScanner - Scanner with patterns sorted by descending severity.
//	error - Non-nil if the embedded file is malformed or a regex does
//	        not compile. That is a build defect, not a runtime state.
func NewContentScanner() (*ContentScanner, error) {
	return newContentScannerFrom(embeddedPatterns)
}

func newContentScannerFrom(raw []byte) (*ContentScanner, error) {
	var file patternFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse safety patterns: %w", err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("safety pattern file contains no patterns")
	}

	for i := range file.Patterns {
		p := &file.Patterns[i]
		compiled, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("compile safety pattern %q: %w", p.Name, err)
		}
		p.compiled = compiled
	}

	sort.SliceStable(file.Patterns, func(i, j int) bool {
		return file.Patterns[i].Severity.Rank() > file.Patterns[j].Severity.Rank()
	})
	return &ContentScanner{patterns: file.Patterns}, nil
}

// Scan returns every pattern hit in the content, worst severity first.
func (s *ContentScanner) Scan(content string) []Finding {
	var findings []Finding
	for _, p := range s.patterns {
		match := p.compiled.FindString(content)
		if match == "" {
			continue
		}
		if len(match) > 80 {
			match = match[:80]
		}
		findings = append(findings, Finding{
			Pattern:  p.Name,
			Category: p.Category,
			Severity: p.Severity,
			Match:    match,
		})
	}
	return findings
}

// WorstSeverity returns the highest severity among findings, or "" when
// there are none.
func WorstSeverity(findings []Finding) Severity {
	var worst Severity
	for _, f := range findings {
		if f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
		}
	}
	return worst
}

// stopSeverity maps the configured safety level to the minimum severity
// that forces a stop. Critical always stops regardless of level.
func stopSeverity(level datatypes.SafetyLevel) Severity {
	switch level {
	case datatypes.SafetyStrict:
		return SeverityMedium
	case datatypes.SafetyRelaxed:
		return SeverityCritical
	default:
		return SeverityHigh
	}
}
