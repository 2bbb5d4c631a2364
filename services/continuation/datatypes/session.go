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
)

// Outcome records what happened to an applied enhancement.
type Outcome string

const (
	// OutcomeAccepted means the candidate improved quality and replaced
	// the current result.
	OutcomeAccepted Outcome = "accepted"

	// OutcomeReverted means the candidate regressed quality beyond the
	// tolerance and was discarded; the previous result was kept.
	OutcomeReverted Outcome = "reverted"

	// OutcomeFailed means generation or validation failed for this
	// iteration.
	OutcomeFailed Outcome = "failed"

	// OutcomeSafetyBlocked means the safety gate stopped the iteration.
	OutcomeSafetyBlocked Outcome = "safety_blocked"
)

// String returns the outcome as a string.
func (o Outcome) String() string {
	return string(o)
}

// EnhancementRecord is one entry in a session's enhancement history.
type EnhancementRecord struct {
	// Iteration is the iteration this record belongs to.
	Iteration int `json:"iteration"`

	// Opportunity is the enhancement that was attempted.
	Opportunity EnhancementOpportunity `json:"opportunity"`

	// Outcome is what happened.
	Outcome Outcome `json:"outcome"`

	// Reason carries the audit reason for non-accepted outcomes
	// (revert delta, safety reason, provider failure).
	Reason string `json:"reason,omitempty"`

	// Assessment is the quality assessment computed for this iteration.
	Assessment QualityAssessment `json:"assessment"`

	// DurationMs is how long the iteration took in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Timestamp is when the iteration completed (Unix milliseconds UTC).
	Timestamp int64 `json:"timestamp"`
}

// ContinuationSession is the stateful container for one continuation run.
//
// Description:
//
//	Created by the orchestrator at session start and mutated in place by
//	the orchestrator only. Every other component receives it (or a
//	projection of it) read-only. Frozen once a terminal state is reached.
//
// Thread Safety:
//
//	NOT self-synchronized. The orchestrator serializes all access.
type ContinuationSession struct {
	// ID uniquely identifies the session.
	ID string `json:"id"`

	// Initial is the task result the session started from.
	Initial TaskResult `json:"initial"`

	// Current is the latest accepted task result.
	Current TaskResult `json:"current"`

	// History is the ordered enhancement history.
	History []EnhancementRecord `json:"history"`

	// Iteration counts completed iterations, including reverted and
	// failed ones. Never exceeds MaxIterations.
	Iteration int `json:"iteration"`

	// StartedAt is the session start time.
	StartedAt time.Time `json:"started_at"`

	// MaxIterations is the configured iteration ceiling.
	MaxIterations int `json:"max_iterations"`

	// MaxDuration is the configured wall-clock ceiling. Enforced by the
	// safety gate, not by the session itself.
	MaxDuration time.Duration `json:"max_duration"`

	// Autonomous marks the session as running without user confirmation
	// between iterations.
	Autonomous bool `json:"autonomous"`
}

// Elapsed returns wall-clock time since the session started.
func (s *ContinuationSession) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

// BudgetExhausted reports whether the iteration or duration budget is spent.
func (s *ContinuationSession) BudgetExhausted() bool {
	return s.Iteration >= s.MaxIterations || s.Elapsed() >= s.MaxDuration
}

// Validate checks session invariants. A failure indicates an orchestrator
// bug and is treated as fatal by callers.
func (s *ContinuationSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session has empty id")
	}
	if s.Iteration < 0 {
		return fmt.Errorf("session %s: negative iteration counter %d", s.ID, s.Iteration)
	}
	if s.Iteration > s.MaxIterations {
		return fmt.Errorf("session %s: iteration %d exceeds max %d",
			s.ID, s.Iteration, s.MaxIterations)
	}
	for i, rec := range s.History {
		if i > 0 && rec.Iteration < s.History[i-1].Iteration {
			return fmt.Errorf("session %s: history iteration decreased at index %d", s.ID, i)
		}
	}
	return nil
}
