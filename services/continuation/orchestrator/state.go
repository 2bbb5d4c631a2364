// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator runs autonomous continuation sessions.
//
// A session starts from a completed task result and iterates: assess
// quality, discover enhancement opportunities, select one, generate an
// improved candidate, validate it, and loop until the quality threshold
// is met, the opportunity stream dries up, the budget is spent, or the
// safety gate halts the run. The orchestrator owns all session mutation;
// every other component is a pure collaborator.
package orchestrator

// State is the continuation loop state.
type State string

const (
	// StateInit is the state before the first assessment.
	StateInit State = "INIT"

	// StateAssessing scores the current result and discovers
	// enhancement opportunities.
	StateAssessing State = "ASSESSING"

	// StateSelecting clears the plan with the safety gate and picks the
	// opportunity to pursue.
	StateSelecting State = "SELECTING"

	// StateGenerating produces an improved candidate via the provider.
	StateGenerating State = "GENERATING"

	// StateValidating scores the candidate and accepts or reverts it.
	StateValidating State = "VALIDATING"

	// StateStopped is the normal terminal state: threshold reached, no
	// opportunities left, budget spent, or a user stop request.
	StateStopped State = "STOPPED"

	// StateSafetyHalted is the terminal state after a safety gate halt.
	StateSafetyHalted State = "SAFETY_HALTED"

	// StateError is the terminal state after an unrecoverable failure.
	StateError State = "ERROR"
)

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the state ends the session.
func (s State) IsTerminal() bool {
	switch s {
	case StateStopped, StateSafetyHalted, StateError:
		return true
	}
	return false
}

// AllStates returns every loop state.
func AllStates() []State {
	return []State{
		StateInit,
		StateAssessing,
		StateSelecting,
		StateGenerating,
		StateValidating,
		StateStopped,
		StateSafetyHalted,
		StateError,
	}
}
