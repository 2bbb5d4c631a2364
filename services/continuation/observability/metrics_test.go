// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func TestMetrics_RecordIteration(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordIteration("code", "accepted", 0.05, 1.2)
	m.RecordIteration("code", "accepted", 0.02, 0.8)
	m.RecordIteration("code", "reverted", -0.08, 2.0)

	accepted := testutil.ToFloat64(m.IterationsTotal.WithLabelValues("code", "accepted"))
	reverted := testutil.ToFloat64(m.IterationsTotal.WithLabelValues("code", "reverted"))
	assert.Equal(t, 2.0, accepted)
	assert.Equal(t, 1.0, reverted)

	count := testutil.CollectAndCount(m.QualityDelta)
	require.Equal(t, 1, count, "one histogram series for the task type")
}

func TestMetrics_SessionLifecycle(t *testing.T) {
	m := newTestMetrics(t)

	m.SessionStarted()
	m.SessionStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSessions))

	m.SessionEnded()
	m.RecordSessionEnd("code", "STOPPED")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsTotal.WithLabelValues("code", "STOPPED")))
}

func TestMetrics_BreakerTrips(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordBreakerTrip("consecutive_failures")
	m.RecordBreakerTrip("consecutive_failures")
	m.RecordBreakerTrip("resource_breach")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerTripsTotal.WithLabelValues("consecutive_failures")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerTripsTotal.WithLabelValues("resource_breach")))
}

func TestMetrics_GenerationCalls(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordGenerationCall("primary", true)
	m.RecordGenerationCall("primary", false)
	m.RecordGenerationCall("fallback", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationCallsTotal.WithLabelValues("primary", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationCallsTotal.WithLabelValues("primary", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationCallsTotal.WithLabelValues("fallback", "success")))
}

func TestMetrics_SeparateRegistriesDoNotCollide(t *testing.T) {
	first := NewMetrics(prometheus.NewRegistry())
	second := NewMetrics(prometheus.NewRegistry())

	first.RecordBreakerTrip("quality_decline")

	assert.Equal(t, 1.0, testutil.ToFloat64(first.BreakerTripsTotal.WithLabelValues("quality_decline")))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.BreakerTripsTotal.WithLabelValues("quality_decline")))
}
