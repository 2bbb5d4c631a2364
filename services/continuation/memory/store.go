// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory persists the cross-session learning memory and the
// session-history audit log in badger.
//
// Both surfaces are append-only: sessions append pattern records and
// terminal summaries after completion, off the critical path, and the
// discoverer reads aggregated success rates. Nothing here is ever
// overwritten.
package memory

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Config controls the backing store.
type Config struct {
	// Dir is the on-disk location. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM. For tests and demos.
	InMemory bool
}

// DefaultConfig returns an on-disk configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{Dir: dir}
}

// InMemoryConfig returns a RAM-only configuration.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is the badger-backed learning memory.
//
// Thread Safety:
//
//	Safe for concurrent use; badger transactions provide isolation.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens or creates the store.
func Open(cfg Config, opts ...StoreOption) (*Store, error) {
	s := &Store{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	var badgerOpts badger.Options
	if cfg.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(cfg.Dir)
	}
	badgerOpts = badgerOpts.WithLogger(badgerLogger{logger: s.logger})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open learning memory store: %w", err)
	}
	s.db = db
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger adapts badger's logger interface onto slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
