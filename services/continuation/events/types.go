// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events provides progress event types and broadcasting for the
// continuation loop.
//
// Events let external systems observe session progress without coupling
// to the orchestrator. Emission is fire and forget: a slow or broken
// subscriber never stalls or aborts an iteration.
//
// Thread Safety:
//
//	All types in this package are designed for concurrent use.
package events

import (
	"time"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// Type identifies the kind of event.
type Type string

const (
	// TypeSessionStart is emitted when a continuation session begins.
	TypeSessionStart Type = "session_start"

	// TypeStateTransition is emitted when the session changes state.
	TypeStateTransition Type = "state_transition"

	// TypeQualityAssessed is emitted after each quality assessment.
	TypeQualityAssessed Type = "quality_assessed"

	// TypeOpportunitySelected is emitted when the decision engine picks
	// an enhancement to pursue.
	TypeOpportunitySelected Type = "opportunity_selected"

	// TypeIterationComplete is emitted when an iteration settles,
	// whether accepted or reverted.
	TypeIterationComplete Type = "iteration_complete"

	// TypeSafetyHalt is emitted when the safety gate halts a session.
	TypeSafetyHalt Type = "safety_halt"

	// TypeSessionEnd is emitted when a session reaches a terminal state.
	TypeSessionEnd Type = "session_end"

	// TypeError is emitted when an iteration fails.
	TypeError Type = "error"
)

// Event is one progress notification.
//
// Thread Safety:
//
//	Event structs should be treated as immutable after creation.
type Event struct {
	// ID is a unique identifier for this event.
	ID string `json:"id"`

	// Type identifies the kind of event.
	Type Type `json:"type"`

	// SessionID links the event to a continuation session.
	SessionID string `json:"session_id"`

	// Iteration is the session iteration when the event occurred.
	Iteration int `json:"iteration"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Data contains event-specific data: one of StateTransitionData,
	// QualityAssessedData, OpportunitySelectedData, IterationCompleteData,
	// SafetyHaltData, SessionEndData, or ErrorData.
	Data any `json:"data,omitempty"`
}

// StateTransitionData is the data for state transition events.
type StateTransitionData struct {
	// FromState is the previous state.
	FromState string `json:"from_state"`

	// ToState is the new state.
	ToState string `json:"to_state"`

	// Reason explains why the transition occurred.
	Reason string `json:"reason,omitempty"`
}

// QualityAssessedData is the data for quality assessment events.
type QualityAssessedData struct {
	// Overall is the composite quality score.
	Overall float64 `json:"overall"`

	// Delta is the change from the previous iteration, when a baseline
	// exists.
	Delta *float64 `json:"delta,omitempty"`

	// Confidence is the assessment confidence.
	Confidence float64 `json:"confidence"`
}

// OpportunitySelectedData is the data for selection events.
type OpportunitySelectedData struct {
	// Category is the selected opportunity's category.
	Category datatypes.OpportunityCategory `json:"category"`

	// Description summarizes the enhancement.
	Description string `json:"description"`

	// CompositeScore is the ranking score the selection was based on.
	CompositeScore float64 `json:"composite_score"`
}

// IterationCompleteData is the data for iteration completion events.
type IterationCompleteData struct {
	// Outcome is the iteration outcome.
	Outcome datatypes.Outcome `json:"outcome"`

	// QualityScore is the quality after the iteration settled.
	QualityScore float64 `json:"quality_score"`

	// DurationMs is the iteration wall time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// SafetyHaltData is the data for safety halt events.
type SafetyHaltData struct {
	// Reason explains the halt.
	Reason string `json:"reason"`

	// ImmediateAction is the action taken, if any.
	ImmediateAction string `json:"immediate_action,omitempty"`
}

// SessionEndData is the data for session end events.
type SessionEndData struct {
	// TerminalState is the state the session ended in.
	TerminalState string `json:"terminal_state"`

	// StopReason explains the termination.
	StopReason string `json:"stop_reason"`

	// FinalScore is the quality of the final output.
	FinalScore float64 `json:"final_score"`

	// Iterations is the number of completed iterations.
	Iterations int `json:"iterations"`
}

// ErrorData is the data for error events.
type ErrorData struct {
	// Message is the sanitized error description.
	Message string `json:"message"`

	// Fatal reports whether the session terminated.
	Fatal bool `json:"fatal"`
}
