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
	"fmt"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/generation"
)

func TestSanitizeError_Nil(t *testing.T) {
	if got := sanitizeError(nil); got != nil {
		t.Fatalf("sanitizeError(nil) = %v, want nil", got)
	}
}

func TestSanitizeError_InternalInconsistencyPassesThrough(t *testing.T) {
	err := fmt.Errorf("%w: state desync in run abc", ErrInternalInconsistency)

	got := sanitizeError(err)

	if !errors.Is(got, ErrInternalInconsistency) {
		t.Fatalf("sanitized error lost the internal inconsistency sentinel: %v", got)
	}
	if !strings.Contains(got.Error(), "state desync") {
		t.Fatalf("internal inconsistencies must surface their details, got %q", got.Error())
	}
}

func TestSanitizeError_ProviderErrorReducedToKind(t *testing.T) {
	inner := errors.New("TLS handshake to api.internal.example failed")
	err := generation.NewProviderError(generation.KindTimeout, "primary", inner)

	got := sanitizeError(err)

	if !strings.Contains(got.Error(), "timeout") {
		t.Fatalf("sanitized provider error should name the kind, got %q", got.Error())
	}
	for _, leaked := range []string{"primary", "api.internal.example"} {
		if strings.Contains(got.Error(), leaked) {
			t.Fatalf("sanitized error leaked %q: %q", leaked, got.Error())
		}
	}
}

func TestSanitizeError_WrappedBothProvidersFailed(t *testing.T) {
	inner := generation.NewProviderError(generation.KindUnavailable, "fallback", nil)
	err := fmt.Errorf("%w: %w", generation.ErrAllProvidersFailed, inner)

	got := sanitizeError(err)

	if !strings.Contains(got.Error(), "unavailable") {
		t.Fatalf("sanitized error should carry the wrapped provider kind, got %q", got.Error())
	}
	if strings.Contains(got.Error(), "fallback") {
		t.Fatalf("sanitized error leaked the provider name: %q", got.Error())
	}
}

func TestSanitizeError_OtherErrorsGetStableText(t *testing.T) {
	got := sanitizeError(errors.New("badger: iterator closed under /data/continuum"))

	const want = "continuation failed: internal processing error"
	if got.Error() != want {
		t.Fatalf("sanitizeError = %q, want %q", got.Error(), want)
	}
}
