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
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the circuit breaker's position.
type CircuitState int

const (
	// CircuitClosed is normal operation; iterations flow freely.
	CircuitClosed CircuitState = iota

	// CircuitOpen blocks all continuation until the cooldown elapses.
	CircuitOpen

	// CircuitHalfOpen allows limited probationary iterations to test
	// whether the underlying problem cleared.
	CircuitHalfOpen
)

// String returns a human-readable state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ErrInvalidCircuitTransition indicates a transition outside the table.
// Seeing it means a bug in the gate, not a runtime condition.
var ErrInvalidCircuitTransition = errors.New("invalid circuit breaker transition")

// circuitTransitions is the explicit transition table. All trip and reset
// paths go through it so every condition is centrally testable.
var circuitTransitions = map[CircuitState][]CircuitState{
	CircuitClosed:   {CircuitOpen},
	CircuitOpen:     {CircuitHalfOpen},
	CircuitHalfOpen: {CircuitClosed, CircuitOpen},
}

// TripReason identifies why the breaker opened.
type TripReason string

const (
	// TripConsecutiveFailures is the consecutive-failure threshold.
	TripConsecutiveFailures TripReason = "consecutive_failures"

	// TripPerformanceDegradation is recent iteration time exceeding the
	// baseline by the configured factor.
	TripPerformanceDegradation TripReason = "performance_degradation"

	// TripQualityDecline is a sustained negative quality delta.
	TripQualityDecline TripReason = "quality_decline"

	// TripResourceBreach is an iteration, duration, or call-rate breach.
	TripResourceBreach TripReason = "resource_breach"

	// TripProbationFailure is any failure while half-open.
	TripProbationFailure TripReason = "probation_failure"
)

// CircuitBreakerConfig tunes one session's breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive
	// failures while closed.
	FailureThreshold int

	// SuccessThreshold closes the circuit after this many consecutive
	// probationary successes while half-open.
	SuccessThreshold int

	// OpenTimeout is the cooldown before OPEN softens to HALF_OPEN.
	OpenTimeout time.Duration

	// OnStateChange, when set, is called after every transition.
	// Invoked on a separate goroutine so it can never block the loop.
	OnStateChange func(from, to CircuitState, reason TripReason)
}

// DefaultCircuitBreakerConfig returns the standard thresholds: trip after
// 5 consecutive failures, close after 3 probationary successes, 30 second
// cooldown.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		OpenTimeout:      30 * time.Second,
	}
}

// CircuitBreaker is one session's failure circuit.
//
// Description:
//
//	CLOSED counts consecutive failures and opens at the threshold, or
//	immediately on an explicit Trip (degradation, decline, resource
//	breach). OPEN blocks everything until the cooldown elapses, then
//	softens to HALF_OPEN on the next Allow probe. HALF_OPEN admits one
//	probe at a time; SuccessThreshold consecutive successes close the
//	circuit, any failure reopens it.
//
// Thread Safety:
//
//	Safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	config        CircuitBreakerConfig
	state         CircuitState
	failures      int
	successes     int
	lastReason    TripReason
	openedAt      time.Time
	probeInFlight bool

	// now is replaceable for tests.
	now func() time.Time
}

// NewCircuitBreaker creates a breaker in the CLOSED state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
		now:    time.Now,
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// LastTripReason returns why the breaker most recently opened.
func (cb *CircuitBreaker) LastTripReason() TripReason {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastReason
}

// Allow reports whether a new iteration may proceed.
//
// Description:
//
//	CLOSED always allows. OPEN denies until the cooldown elapses, at
//	which point the breaker softens to HALF_OPEN and admits a single
//	probe. HALF_OPEN admits one probe at a time; concurrent calls while
//	a probe is in flight are denied.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) >= cb.config.OpenTimeout {
			cb.transitionLocked(CircuitHalfOpen, cb.lastReason)
			cb.probeInFlight = true
			return true
		}
		return false
	case CircuitHalfOpen:
		if cb.probeInFlight {
			return false
		}
		cb.probeInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess reports a successful iteration.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.probeInFlight = false
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionLocked(CircuitClosed, "")
		}
	}
}

// RecordFailure reports a failed iteration (provider or validation
// driven). While closed, the consecutive-failure threshold may trip the
// circuit; while half-open, any failure reopens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionLocked(CircuitOpen, TripConsecutiveFailures)
		}
	case CircuitHalfOpen:
		cb.probeInFlight = false
		cb.transitionLocked(CircuitOpen, TripProbationFailure)
	}
}

// Trip opens the circuit immediately for the given reason, regardless of
// failure counts. Used for degradation, decline, and resource breaches.
func (cb *CircuitBreaker) Trip(reason TripReason) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		cb.transitionLocked(CircuitOpen, reason)
	}
}

// transitionLocked moves to a new state via the transition table.
// Callers hold cb.mu. An off-table transition panics: it is an
// implementation bug, and the tables above are the contract.
func (cb *CircuitBreaker) transitionLocked(to CircuitState, reason TripReason) {
	if !canTransition(cb.state, to) {
		panic(fmt.Errorf("%w: %s -> %s", ErrInvalidCircuitTransition, cb.state, to))
	}
	from := cb.state
	cb.state = to

	switch to {
	case CircuitOpen:
		cb.openedAt = cb.now()
		cb.lastReason = reason
		cb.successes = 0
		cb.probeInFlight = false
	case CircuitHalfOpen:
		cb.successes = 0
		cb.probeInFlight = false
	case CircuitClosed:
		cb.failures = 0
		cb.successes = 0
		cb.lastReason = ""
	}

	if cb.config.OnStateChange != nil {
		go cb.config.OnStateChange(from, to, reason)
	}
}

// canTransition consults the transition table.
func canTransition(from, to CircuitState) bool {
	for _, allowed := range circuitTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
