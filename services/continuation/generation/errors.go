// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generation

import (
	"errors"
	"fmt"
)

// ProviderErrorKind classifies a provider failure.
type ProviderErrorKind string

const (
	// KindTimeout is a provider-side or network timeout.
	KindTimeout ProviderErrorKind = "timeout"

	// KindAuth is an authentication or authorization failure.
	// Non-retryable: the fallback provider is not attempted.
	KindAuth ProviderErrorKind = "auth"

	// KindRateLimited is a provider rate-limit response.
	KindRateLimited ProviderErrorKind = "rate_limited"

	// KindUnavailable is any other provider-side unavailability.
	KindUnavailable ProviderErrorKind = "unavailable"
)

// ProviderError is an external generation failure.
type ProviderError struct {
	// Kind classifies the failure.
	Kind ProviderErrorKind

	// Provider names the provider that failed.
	Provider string

	// Err is the underlying cause, if any.
	Err error
}

// NewProviderError wraps a provider failure.
func NewProviderError(kind ProviderErrorKind, provider string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the fallback provider should be attempted.
// Every kind retries except auth, which surfaces immediately.
func (e *ProviderError) Retryable() bool {
	return e.Kind != KindAuth
}

// AsProviderError unwraps err to a *ProviderError when possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
