// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"fmt"
	"sync"
)

// StateMachine manages valid state transitions for the continuation loop.
//
// The state machine enforces the following transition graph:
//
//	INIT → ASSESSING              : Session created, initial result scored
//	INIT → ERROR                  : Invalid input or setup failure
//	ASSESSING → SELECTING         : Opportunities discovered
//	ASSESSING → STOPPED           : Threshold met, nothing to enhance, or stop requested
//	ASSESSING → ERROR             : Assessment failed unrecoverably
//	SELECTING → GENERATING        : Opportunity selected and cleared by the gate
//	SELECTING → STOPPED           : Decision engine chose to stop, or stop requested
//	SELECTING → SAFETY_HALTED     : Safety gate denied the plan
//	SELECTING → ERROR             : Selection failed unrecoverably
//	GENERATING → VALIDATING       : Candidate produced
//	GENERATING → ASSESSING        : Retryable generation failure recorded, budget remains
//	GENERATING → STOPPED          : Budget spent after a failed generation, or stop requested
//	GENERATING → ERROR            : Non-retryable provider failure, or primary and fallback both failed
//	VALIDATING → ASSESSING        : Iteration settled or unsafe candidate discarded, budget remains
//	VALIDATING → STOPPED          : Budget spent or stop requested
//	VALIDATING → SAFETY_HALTED    : Monitor demanded an immediate halt
//	VALIDATING → ERROR            : Validation failed unrecoverably
//
// STOPPED, SAFETY_HALTED, and ERROR are terminal with no outgoing edges.
//
// Thread Safety:
//
//	StateMachine is safe for concurrent use.
type StateMachine struct {
	mu sync.RWMutex

	// transitions maps (from, to) pairs that are valid.
	transitions map[State]map[State]bool
}

// NewStateMachine creates a new state machine with all valid transitions.
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[State]map[State]bool),
	}

	for _, state := range AllStates() {
		sm.transitions[state] = make(map[State]bool)
	}

	sm.addTransition(StateInit, StateAssessing)
	sm.addTransition(StateInit, StateError)

	sm.addTransition(StateAssessing, StateSelecting)
	sm.addTransition(StateAssessing, StateStopped)
	sm.addTransition(StateAssessing, StateError)

	sm.addTransition(StateSelecting, StateGenerating)
	sm.addTransition(StateSelecting, StateStopped)
	sm.addTransition(StateSelecting, StateSafetyHalted)
	sm.addTransition(StateSelecting, StateError)

	sm.addTransition(StateGenerating, StateValidating)
	sm.addTransition(StateGenerating, StateAssessing)
	sm.addTransition(StateGenerating, StateStopped)
	sm.addTransition(StateGenerating, StateError)

	sm.addTransition(StateValidating, StateAssessing)
	sm.addTransition(StateValidating, StateStopped)
	sm.addTransition(StateValidating, StateSafetyHalted)
	sm.addTransition(StateValidating, StateError)

	return sm
}

// addTransition registers a valid transition.
func (sm *StateMachine) addTransition(from, to State) {
	sm.transitions[from][to] = true
}

// CanTransition checks if a transition from one state to another is valid.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) CanTransition(from, to State) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition validates a transition and returns the target state.
//
// Outputs:
//
//	error - Wraps ErrInvalidTransition when the edge is not in the graph.
//	        An invalid edge is an internal inconsistency: the loop code
//	        requested a move the graph forbids.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) Transition(from, to State) error {
	if !sm.CanTransition(from, to) {
		return fmt.Errorf("%w: %w: %s -> %s", ErrInternalInconsistency, ErrInvalidTransition, from, to)
	}
	return nil
}

// ValidTransitionsFrom returns all valid transitions from a given state.
//
// Thread Safety: This method is safe for concurrent use.
func (sm *StateMachine) ValidTransitionsFrom(from State) []State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var result []State
	if toMap, ok := sm.transitions[from]; ok {
		for state, valid := range toMap {
			if valid {
				result = append(result, state)
			}
		}
	}
	return result
}
