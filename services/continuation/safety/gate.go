// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package safety validates enhancement plans and monitors in-flight
// iterations against resource limits, content-safety rules, and anomaly
// signals. It owns the per-session circuit breaker.
//
// The gate is pure policy over its inputs: it holds no reference to the
// session and never mutates anything outside its own windows. Every
// deny decision carries a reason; a breach is never silently ignored.
package safety

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// Gate is one session's safety gate.
//
// Description:
//
//	ValidatePlan clears a proposed enhancement plan before execution;
//	Monitor inspects an in-flight iteration. The gate owns the session's
//	circuit breaker plus the performance and quality-decline windows
//	that feed its trip conditions. The call limiter is shared across
//	sessions and injected via ResourceLimits.
//
//	The plan contract is deliberately wider than text generation: any
//	future action plan (including desktop automation) must clear the
//	same ValidatePlan/Monitor surface.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Gate struct {
	mu sync.Mutex

	logger    *slog.Logger
	sessionID string
	breaker   *CircuitBreaker
	limits    ResourceLimits
	scanner   *ContentScanner
	level     datatypes.SafetyLevel
	perf      *perfWindow
	deltas    *deltaWindow
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithBreakerConfig overrides the circuit breaker tuning.
func WithBreakerConfig(config CircuitBreakerConfig) GateOption {
	return func(g *Gate) {
		g.breaker = NewCircuitBreaker(config)
	}
}

// perfBaselineN is the window width for the iteration-time baseline and
// the recent window compared against it.
const perfBaselineN = 3

// perfDegradationFactor is the recent-over-baseline ratio that trips the
// breaker.
const perfDegradationFactor = 1.5

// qualityDeclineN is how many consecutive negative deltas count as
// sustained decline.
const qualityDeclineN = 2

// NewGate creates a session's safety gate.
//
// Inputs:
//
//	sessionID - The owning session, for logs and audit reasons.
//	cfg - Continuation config; supplies the safety level.
//	limits - Session resource ceilings with the shared call limiter.
//	scanner - Content scanner. Must not be nil.
//	opts - Optional logger and breaker tuning.
func NewGate(sessionID string, cfg datatypes.Config, limits ResourceLimits, scanner *ContentScanner, opts ...GateOption) *Gate {
	g := &Gate{
		logger:    slog.Default(),
		sessionID: sessionID,
		breaker:   NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		limits:    limits,
		scanner:   scanner,
		level:     cfg.SafetyLevel,
		perf:      newPerfWindow(perfBaselineN, perfDegradationFactor),
		deltas:    newDeltaWindow(qualityDeclineN),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ValidatePlan clears a proposed enhancement plan before execution.
//
// Description:
//
//	Checks, in order: resource budgets (a breach trips the breaker and
//	identifies the limiting resource in the reason), structural validity
//	of the opportunities, content safety of the plan text, and finally
//	the circuit breaker. An empty plan is allowed; plan emptiness is the
//	decision engine's stop signal, not a safety matter.
//
// Outputs:
//
//	datatypes.SafetyDecision - Allow=false always carries a reason.
func (g *Gate) ValidatePlan(opportunities []datatypes.EnhancementOpportunity, session *datatypes.ContinuationSession) datatypes.SafetyDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if breached := g.limits.Check(session.Iteration, session.Elapsed()); breached != "" {
		g.breaker.Trip(TripResourceBreach)
		g.logger.Warn("plan denied on resource breach",
			"session_id", g.sessionID, "resource", breached)
		d := deny(fmt.Sprintf("resource limit exceeded: %s", breached), 1, "")
		d.ResourceExhausted = true
		return d
	}

	for _, opp := range opportunities {
		if err := opp.Validate(); err != nil {
			return deny(fmt.Sprintf("malformed opportunity in plan: %v", err), 1, "")
		}
	}

	var planText string
	for _, opp := range opportunities {
		planText += opp.Description + "\n"
	}
	if findings := g.scanner.Scan(planText); len(findings) > 0 {
		worst := WorstSeverity(findings)
		if worst.Rank() >= stopSeverity(g.level).Rank() {
			g.logger.Warn("plan denied on content safety",
				"session_id", g.sessionID,
				"pattern", findings[0].Pattern,
				"severity", string(worst))
			return deny(
				fmt.Sprintf("plan content matched safety pattern %q (severity %s)",
					findings[0].Pattern, worst),
				0.95,
				"remove the offending enhancement from the plan")
		}
	}

	if !g.breaker.Allow() {
		reason := g.breaker.LastTripReason()
		return deny(fmt.Sprintf("circuit breaker open (%s)", reason), 1, "wait for the cooldown to elapse")
	}

	score := 1.0
	return datatypes.SafetyDecision{
		Allow:      true,
		Reason:     "plan within safety bounds",
		Confidence: 0.9,
		Score:      &score,
	}
}

// Monitor inspects one in-flight iteration.
//
// Description:
//
//	Scans generated content first: a critical finding forces an
//	immediate halt regardless of circuit-breaker state; findings at or
//	above the level cutoff demand a revert. Then feeds the iteration
//	duration and quality delta into the anomaly windows; detected
//	performance degradation or sustained quality decline trips the
//	breaker so the next ValidatePlan denies, without aborting the
//	current iteration.
func (g *Gate) Monitor(snapshot datatypes.ExecutionSnapshot) datatypes.ExecutionDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	findings := g.scanner.Scan(snapshot.Content)
	if worst := WorstSeverity(findings); worst != "" {
		if worst == SeverityCritical {
			g.logger.Error("critical content-safety hit, forcing stop",
				"session_id", g.sessionID,
				"pattern", findings[0].Pattern,
				"iteration", snapshot.Iteration)
			return datatypes.ExecutionDecision{
				Continue: false,
				Reason: fmt.Sprintf("critical content-safety finding %q",
					findings[0].Pattern),
				ImmediateAction: datatypes.ActionHalt,
			}
		}
		if worst.Rank() >= stopSeverity(g.level).Rank() {
			return datatypes.ExecutionDecision{
				Continue: false,
				Reason: fmt.Sprintf("content-safety finding %q (severity %s)",
					findings[0].Pattern, worst),
				ImmediateAction: datatypes.ActionRevert,
			}
		}
	}

	g.perf.Record(snapshot.IterationDuration)
	if g.perf.Degraded() {
		g.breaker.Trip(TripPerformanceDegradation)
		g.logger.Warn("performance degradation detected",
			"session_id", g.sessionID, "iteration", snapshot.Iteration)
		return datatypes.ExecutionDecision{
			Continue: true,
			Reason:   "performance degradation recorded, circuit opened",
		}
	}

	if snapshot.QualityDelta != nil {
		g.deltas.Record(*snapshot.QualityDelta)
		if g.deltas.Declining() {
			g.breaker.Trip(TripQualityDecline)
			g.logger.Warn("sustained quality decline detected",
				"session_id", g.sessionID, "iteration", snapshot.Iteration)
			return datatypes.ExecutionDecision{
				Continue: true,
				Reason:   "sustained quality decline recorded, circuit opened",
			}
		}
	}

	return datatypes.ExecutionDecision{Continue: true, Reason: "within safety bounds"}
}

// ReserveGenerationCall consumes one token from the shared rolling-hour
// call budget. The orchestrator must call this before every external
// generation call and must not generate when it returns false.
func (g *Gate) ReserveGenerationCall() bool {
	return g.limits.Calls.Reserve()
}

// RecordFailure feeds one provider- or validation-driven failure into the
// circuit breaker.
func (g *Gate) RecordFailure() {
	g.breaker.RecordFailure()
}

// RecordSuccess feeds one successful iteration into the circuit breaker.
func (g *Gate) RecordSuccess() {
	g.breaker.RecordSuccess()
}

// BreakerState exposes the circuit state for status and metrics.
func (g *Gate) BreakerState() CircuitState {
	return g.breaker.State()
}

func deny(reason string, confidence float64, mitigation string) datatypes.SafetyDecision {
	return datatypes.SafetyDecision{
		Allow:      false,
		Reason:     reason,
		Confidence: confidence,
		Mitigation: mitigation,
	}
}
