// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the continuation
// loop.
//
// # Description
//
// Metrics cover session lifecycle, iteration outcomes, quality movement,
// and safety interventions:
//   - Iteration counters by task type and outcome
//   - Quality delta histograms
//   - Circuit breaker trip counters by reason
//   - Active session gauge
//   - Generation call counters by provider and status
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for continuation metrics
const continuationSubsystem = "continuation"

// Metrics holds all Prometheus metrics for continuation sessions.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring the
// autonomous continuation loop. Initialize once at startup via
// InitMetrics(), or with a private registry via NewMetrics() in tests.
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// IterationsTotal counts completed iterations by task type and outcome.
	// Labels: task_type, outcome (accepted, reverted, failed, safety_blocked)
	IterationsTotal *prometheus.CounterVec

	// SessionsTotal counts terminated sessions by terminal state.
	// Labels: task_type, terminal_state (STOPPED, SAFETY_HALTED, ERROR)
	SessionsTotal *prometheus.CounterVec

	// QualityDelta observes the per-iteration quality movement.
	// Labels: task_type
	QualityDelta *prometheus.HistogramVec

	// IterationDurationSeconds measures iteration wall time.
	// Labels: task_type
	IterationDurationSeconds *prometheus.HistogramVec

	// BreakerTripsTotal counts circuit breaker trips by reason.
	// Labels: reason (consecutive_failures, performance_degradation, ...)
	BreakerTripsTotal *prometheus.CounterVec

	// ActiveSessions tracks currently running sessions.
	ActiveSessions prometheus.Gauge

	// GenerationCallsTotal counts generation provider calls.
	// Labels: provider (primary, fallback), status (success, error)
	GenerationCallsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance registered on the default
// Prometheus registry. Initialized by InitMetrics().
var DefaultMetrics *Metrics

// NewMetrics creates metrics registered on the given registerer.
//
// # Inputs
//
//   - reg: The Prometheus registerer. Tests pass prometheus.NewRegistry()
//     to avoid duplicate registration across test cases.
//
// # Outputs
//
//   - *Metrics: The initialized metrics instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		IterationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: continuationSubsystem,
				Name:      "iterations_total",
				Help:      "Completed enhancement iterations by task type and outcome",
			},
			[]string{"task_type", "outcome"},
		),

		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: continuationSubsystem,
				Name:      "sessions_total",
				Help:      "Terminated continuation sessions by terminal state",
			},
			[]string{"task_type", "terminal_state"},
		),

		QualityDelta: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: continuationSubsystem,
				Name:      "quality_delta",
				Help:      "Per-iteration quality score movement",
				Buckets:   []float64{-0.2, -0.1, -0.05, -0.01, 0, 0.01, 0.05, 0.1, 0.2, 0.4},
			},
			[]string{"task_type"},
		),

		IterationDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: continuationSubsystem,
				Name:      "iteration_duration_seconds",
				Help:      "Iteration wall time in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"task_type"},
		),

		BreakerTripsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: continuationSubsystem,
				Name:      "breaker_trips_total",
				Help:      "Circuit breaker trips by reason",
			},
			[]string{"reason"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: continuationSubsystem,
				Name:      "active_sessions",
				Help:      "Number of currently running continuation sessions",
			},
		),

		GenerationCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: continuationSubsystem,
				Name:      "generation_calls_total",
				Help:      "Generation provider calls by provider and status",
			},
			[]string{"provider", "status"},
		),
	}
}

// InitMetrics initializes the default metrics instance on the default
// Prometheus registry. Call once at application startup; calling twice
// panics on duplicate registration.
func InitMetrics() *Metrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// RecordIteration records a settled iteration.
//
// # Inputs
//
//   - taskType: The session's task type label.
//   - outcome: The iteration outcome label.
//   - delta: Quality movement for the iteration.
//   - seconds: Iteration wall time in seconds.
func (m *Metrics) RecordIteration(taskType, outcome string, delta, seconds float64) {
	m.IterationsTotal.WithLabelValues(taskType, outcome).Inc()
	m.QualityDelta.WithLabelValues(taskType).Observe(delta)
	m.IterationDurationSeconds.WithLabelValues(taskType).Observe(seconds)
}

// RecordSessionEnd records a terminated session.
func (m *Metrics) RecordSessionEnd(taskType, terminalState string) {
	m.SessionsTotal.WithLabelValues(taskType, terminalState).Inc()
}

// RecordBreakerTrip records a circuit breaker trip.
func (m *Metrics) RecordBreakerTrip(reason string) {
	m.BreakerTripsTotal.WithLabelValues(reason).Inc()
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

// RecordGenerationCall records one provider call.
func (m *Metrics) RecordGenerationCall(provider string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.GenerationCallsTotal.WithLabelValues(provider, status).Inc()
}
