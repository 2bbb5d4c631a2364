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
	"errors"
	"time"
)

// ErrMissingDenyReason indicates a deny decision without a reason, which
// violates the safety gate contract.
var ErrMissingDenyReason = errors.New("safety decision denies without a reason")

// SafetyDecision is the safety gate's verdict on a proposed plan.
//
// Invariant: Allow=false always carries a non-empty Reason. The reason is
// copied into session history for audit; the decision itself is not
// persisted past the point that consumed it.
type SafetyDecision struct {
	// Allow indicates the plan may proceed.
	Allow bool `json:"allow"`

	// Reason explains the decision in human-readable form. Required
	// whenever Allow is false.
	Reason string `json:"reason"`

	// Confidence is the gate's confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Score is an optional numeric safety score in [0,1].
	Score *float64 `json:"score,omitempty"`

	// Mitigation optionally suggests how to make the plan acceptable.
	Mitigation string `json:"mitigation,omitempty"`

	// ResourceExhausted marks a deny caused by a resource budget rather
	// than a safety signal. Sessions denied this way end in STOPPED,
	// not SAFETY_HALTED.
	ResourceExhausted bool `json:"resource_exhausted,omitempty"`
}

// Validate enforces the deny-carries-reason invariant.
func (d SafetyDecision) Validate() error {
	if !d.Allow && d.Reason == "" {
		return ErrMissingDenyReason
	}
	return nil
}

// ExecutionDecision is the safety gate's verdict on an in-flight iteration.
type ExecutionDecision struct {
	// Continue indicates the iteration may keep going.
	Continue bool `json:"continue"`

	// Reason explains the decision.
	Reason string `json:"reason"`

	// ImmediateAction names the action the orchestrator must take when
	// Continue is false ("halt", "revert"). Empty when Continue is true.
	ImmediateAction string `json:"immediate_action,omitempty"`
}

// Immediate actions the monitor can demand.
const (
	ActionHalt   = "halt"
	ActionRevert = "revert"
)

// ExecutionSnapshot is the monitor's view of one in-flight iteration.
//
// The orchestrator assembles a snapshot after each generation call and
// hands it to the safety gate; the gate never reads session state directly.
type ExecutionSnapshot struct {
	// SessionID identifies the owning session.
	SessionID string

	// Iteration is the iteration under execution.
	Iteration int

	// IterationDuration is how long the iteration has taken so far.
	IterationDuration time.Duration

	// QualityDelta is the scored delta for the candidate, when available.
	QualityDelta *float64

	// Content is the generated content to scan for unsafe patterns.
	Content string
}
