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
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.continuation.generation")

// ErrAllProvidersFailed wraps the fallback's error when the primary and
// the fallback both fail on the same call. The orchestrator treats it as
// fatal for the session; there is no third provider to try.
var ErrAllProvidersFailed = errors.New("both generation providers failed")

// FailoverClient composes a primary and a fallback generator with the
// retry-once policy: a retryable primary failure tries the fallback
// exactly once; an auth failure surfaces immediately without touching
// the fallback.
//
// Thread Safety:
//
//	Safe for concurrent use when the wrapped generators are.
type FailoverClient struct {
	primary  Generator
	fallback Generator
	logger   *slog.Logger
}

// FailoverOption configures a FailoverClient.
type FailoverOption func(*FailoverClient)

// WithFailoverLogger sets the logger.
func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(c *FailoverClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewFailoverClient creates the failover composition. The fallback may be
// nil, in which case primary failures surface directly.
func NewFailoverClient(primary, fallback Generator, opts ...FailoverOption) *FailoverClient {
	c := &FailoverClient{
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate runs the retry-once-with-fallback policy.
//
// Outputs:
//
//	string - The generated text on success, from whichever provider
//	         answered.
//	error - The fallback's error when both fail; the primary's error
//	        when it was non-retryable or no fallback exists.
func (c *FailoverClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.failover")
	defer span.End()
	span.SetAttributes(
		attribute.String("task_type", params.TaskType.String()),
		attribute.Int("prompt_chars", len(prompt)),
	)

	text, err := c.primary.Generate(ctx, prompt, params)
	if err == nil {
		span.SetAttributes(attribute.String("provider", "primary"))
		return text, nil
	}

	pe, isProvider := AsProviderError(err)
	if !isProvider {
		err = NewProviderError(KindUnavailable, "primary", err)
		pe, _ = AsProviderError(err)
	}
	span.RecordError(err)

	if !pe.Retryable() {
		c.logger.Error("primary provider auth failure, not retrying",
			"provider", pe.Provider, "kind", string(pe.Kind))
		span.SetStatus(codes.Error, "auth failure")
		return "", err
	}
	if c.fallback == nil {
		span.SetStatus(codes.Error, "primary failed, no fallback")
		return "", err
	}

	c.logger.Warn("primary provider failed, trying fallback",
		"kind", string(pe.Kind), "provider", pe.Provider)

	text, fbErr := c.fallback.Generate(ctx, prompt, params)
	if fbErr == nil {
		span.SetAttributes(attribute.String("provider", "fallback"))
		return text, nil
	}
	if _, ok := AsProviderError(fbErr); !ok {
		fbErr = NewProviderError(KindUnavailable, "fallback", fbErr)
	}
	span.RecordError(fbErr)
	span.SetStatus(codes.Error, "both providers failed")
	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, fbErr)
}
