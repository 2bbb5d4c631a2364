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
	"errors"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/generation"
)

// ErrSessionNotFound is returned when no session exists for the ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionActive is returned when a terminal-only operation is called
// on a session that is still running.
var ErrSessionActive = errors.New("session still active")

// ErrInvalidTransition is returned for a state transition not in the graph.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrInternalInconsistency marks a bug in the loop itself rather than an
// external failure. It is the only error class whose details surface to
// callers unsanitized, so the defect can be diagnosed from the report.
var ErrInternalInconsistency = errors.New("internal inconsistency")

// sanitizeError maps an internal failure to the error exposed on the
// session. Provider errors and other external failures are reduced to a
// stable description so provider internals never leak into results;
// internal inconsistencies pass through untouched.
func sanitizeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInternalInconsistency) {
		return err
	}
	if pe, ok := generation.AsProviderError(err); ok {
		return errors.New("generation provider failure: " + string(pe.Kind))
	}
	return errors.New("continuation failed: internal processing error")
}
