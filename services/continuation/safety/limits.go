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
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

// CallLimiter enforces the external-generation-call ceiling per rolling
// hour. It is the one piece of state shared across sessions, so both the
// token bucket and the counter use atomic discipline; two sessions
// bursting simultaneously cannot undercount.
//
// Thread Safety:
//
//	Safe for concurrent use.
type CallLimiter struct {
	limiter *rate.Limiter
	total   atomic.Int64
}

// NewCallLimiter creates a limiter allowing callsPerHour external
// generation calls per rolling hour, with burst capacity of the full
// hour's budget.
func NewCallLimiter(callsPerHour int) *CallLimiter {
	if callsPerHour <= 0 {
		callsPerHour = datatypes.HardMaxCallsPerHour
	}
	return &CallLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(callsPerHour)), callsPerHour),
	}
}

// Reserve consumes one call token. Returns false when the rolling-hour
// budget is exhausted; the caller must not make the generation call.
func (l *CallLimiter) Reserve() bool {
	if !l.limiter.Allow() {
		return false
	}
	l.total.Add(1)
	return true
}

// Available reports whether at least one token is available without
// consuming it.
func (l *CallLimiter) Available() bool {
	return l.limiter.Tokens() >= 1
}

// Total returns the number of calls reserved since construction.
func (l *CallLimiter) Total() int64 {
	return l.total.Load()
}

// ResourceLimits are the hard per-session ceilings the gate checks before
// and during every iteration. Breaches are never silently ignored.
type ResourceLimits struct {
	// MaxIterations caps iterations per session.
	MaxIterations int

	// MaxDuration caps session wall-clock time.
	MaxDuration time.Duration

	// Calls is the shared rolling-hour external-call limiter.
	Calls *CallLimiter
}

// NewResourceLimits derives the session ceilings from config, clamped to
// the hard maxima. The call limiter is shared; pass the process-wide one.
func NewResourceLimits(cfg datatypes.Config, calls *CallLimiter) ResourceLimits {
	if calls == nil {
		calls = NewCallLimiter(datatypes.HardMaxCallsPerHour)
	}
	return ResourceLimits{
		MaxIterations: cfg.EffectiveMaxIterations(),
		MaxDuration:   cfg.MaxDuration(),
		Calls:         calls,
	}
}

// Check returns the name of the first breached resource, or "" when all
// budgets hold.
func (l ResourceLimits) Check(iteration int, elapsed time.Duration) string {
	if iteration >= l.MaxIterations {
		return "iteration limit"
	}
	if elapsed >= l.MaxDuration {
		return "duration limit"
	}
	if !l.Calls.Available() {
		return "generation call rate ceiling"
	}
	return ""
}
