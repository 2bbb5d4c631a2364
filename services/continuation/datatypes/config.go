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

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Mode selects a continuation aggressiveness preset.
type Mode string

const (
	// ModeConservative raises the viability bar and caps the candidate
	// list; sessions stop earlier.
	ModeConservative Mode = "conservative"

	// ModeAdaptive is the balanced default.
	ModeAdaptive Mode = "adaptive"

	// ModeAggressive lowers the viability bar and considers more
	// candidates per pass.
	ModeAggressive Mode = "aggressive"
)

// SafetyLevel selects a content-safety strictness preset.
type SafetyLevel string

const (
	// SafetyStrict stops on medium severity and above.
	SafetyStrict SafetyLevel = "strict"

	// SafetyStandard stops on high severity and above.
	SafetyStandard SafetyLevel = "standard"

	// SafetyRelaxed stops on critical severity only.
	SafetyRelaxed SafetyLevel = "relaxed"
)

// Hard resource ceilings enforced by the safety gate regardless of
// configuration.
const (
	// HardMaxIterations is the absolute iteration ceiling per session.
	HardMaxIterations = 20

	// HardMaxDuration is the absolute wall-clock ceiling per session.
	HardMaxDuration = 600 * time.Second

	// HardMaxCallsPerHour is the external-generation-call ceiling per
	// rolling hour, shared across all sessions in the process.
	HardMaxCallsPerHour = 150
)

// Defaults applied by NewConfig / ParseConfig when options are omitted.
const (
	DefaultQualityThreshold = 0.92
	DefaultMaxOpportunities = 10
	DefaultMinViability     = 0.3
	DefaultRevertTolerance  = -0.05
)

// Config is the continuation configuration surface.
//
// Description:
//
//	Unknown YAML keys are ignored; missing keys fall back to defaults.
//	Mode and SafetyLevel are presets that fill tuning knobs the caller
//	left unset; explicit values always win over the preset.
type Config struct {
	// Mode is the aggressiveness preset: conservative, adaptive, aggressive.
	Mode Mode `yaml:"mode" validate:"oneof=conservative adaptive aggressive"`

	// QualityThreshold is the overall score at which further continuation
	// stops paying off. Sessions stop once the current result reaches it.
	QualityThreshold float64 `yaml:"quality_threshold" validate:"gte=0,lte=1"`

	// MaxIterations caps iterations for the session. Clamped to
	// HardMaxIterations by the safety gate.
	MaxIterations int `yaml:"max_iterations" validate:"gte=1"`

	// MaxDurationSeconds caps session wall-clock time. Clamped to
	// HardMaxDuration by the safety gate.
	MaxDurationSeconds int `yaml:"max_duration_seconds" validate:"gte=1"`

	// SafetyLevel is the content-safety preset: strict, standard, relaxed.
	SafetyLevel SafetyLevel `yaml:"safety_level" validate:"oneof=strict standard relaxed"`

	// EnabledCategories restricts discovery to these categories. Empty
	// means all categories are enabled.
	EnabledCategories []OpportunityCategory `yaml:"enabled_categories" validate:"dive,oneof=content_expansion quality_improvement knowledge_integration structural optimization error_correction"`

	// MaxOpportunities caps the discoverer's ranked list per pass.
	MaxOpportunities int `yaml:"max_opportunities" validate:"gte=1,lte=50"`

	// MinViability drops opportunities whose composite score falls below it.
	MinViability float64 `yaml:"min_viability" validate:"gte=0,lte=1"`

	// RevertTolerance is the quality delta below which a candidate is
	// discarded and the previous result kept. Global, not per task type.
	RevertTolerance float64 `yaml:"revert_tolerance" validate:"lte=0"`

	// Autonomous runs the session without per-iteration confirmation.
	Autonomous bool `yaml:"autonomous"`
}

var configValidator = validator.New()

// NewConfig returns the default configuration (adaptive mode, standard
// safety, hard ceilings as limits).
func NewConfig() Config {
	var cfg Config
	cfg.applyModePreset()
	return cfg
}

// ParseConfig unmarshals YAML on top of the defaults and validates the
// result. Unknown keys are ignored.
//
// Inputs:
//
//	data - Raw YAML. May be empty, which yields the defaults.
//
// Outputs:
//
//	Config - The merged, validated configuration.
//	error - Non-nil if the YAML is malformed or a value is out of range.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse continuation config: %w", err)
		}
	}
	cfg.applyModePreset()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints and clamps nothing;
// out-of-range values are errors so misconfiguration is loud.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("continuation config invalid: %w", err)
	}
	return nil
}

// MaxDuration returns the configured wall-clock ceiling as a duration,
// clamped to the hard ceiling.
func (c Config) MaxDuration() time.Duration {
	d := time.Duration(c.MaxDurationSeconds) * time.Second
	if d > HardMaxDuration {
		return HardMaxDuration
	}
	return d
}

// EffectiveMaxIterations returns MaxIterations clamped to the hard ceiling.
func (c Config) EffectiveMaxIterations() int {
	if c.MaxIterations > HardMaxIterations {
		return HardMaxIterations
	}
	return c.MaxIterations
}

// CategoryEnabled reports whether discovery may produce the category.
// An empty EnabledCategories list enables everything.
func (c Config) CategoryEnabled(cat OpportunityCategory) bool {
	if len(c.EnabledCategories) == 0 {
		return true
	}
	for _, enabled := range c.EnabledCategories {
		if enabled == cat {
			return true
		}
	}
	return false
}

// applyModePreset fills tuning knobs from the mode. Explicit non-zero
// values set by the caller are left alone.
func (c *Config) applyModePreset() {
	if c.Mode == "" {
		c.Mode = ModeAdaptive
	}
	if c.SafetyLevel == "" {
		c.SafetyLevel = SafetyStandard
	}
	if c.MaxOpportunities == 0 {
		switch c.Mode {
		case ModeConservative:
			c.MaxOpportunities = 5
		default:
			c.MaxOpportunities = DefaultMaxOpportunities
		}
	}
	if c.MinViability == 0 {
		switch c.Mode {
		case ModeConservative:
			c.MinViability = 0.5
		case ModeAggressive:
			c.MinViability = 0.2
		default:
			c.MinViability = DefaultMinViability
		}
	}
	if c.RevertTolerance == 0 {
		c.RevertTolerance = DefaultRevertTolerance
	}
	if c.QualityThreshold == 0 {
		c.QualityThreshold = DefaultQualityThreshold
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = HardMaxIterations
	}
	if c.MaxDurationSeconds == 0 {
		c.MaxDurationSeconds = int(HardMaxDuration / time.Second)
	}
}
