// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

const sessionPrefix = "session/"

// ErrSessionNotFound is returned when no summary exists for the ID.
var ErrSessionNotFound = errors.New("session summary not found")

// SessionSummary is the terminal audit record of one continuation
// session, written once when the session reaches a terminal state.
type SessionSummary struct {
	SessionID     string                        `json:"session_id"`
	TaskType      datatypes.TaskType            `json:"task_type"`
	TerminalState string                        `json:"terminal_state"`
	StopReason    string                        `json:"stop_reason"`
	Iterations    int                           `json:"iterations"`
	InitialScore  float64                       `json:"initial_score"`
	FinalScore    float64                       `json:"final_score"`
	History       []datatypes.EnhancementRecord `json:"history"`
	StartedAt     time.Time                     `json:"started_at"`
	EndedAt       time.Time                     `json:"ended_at"`
}

// AppendSessionSummary writes a terminal session record. A summary is
// written at most once per session; a duplicate write is rejected.
func (s *Store) AppendSessionSummary(sum SessionSummary) error {
	if sum.SessionID == "" {
		return errors.New("session summary requires a session ID")
	}
	val, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal session summary: %w", err)
	}
	key := []byte(sessionPrefix + sum.SessionID)

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("session summary already recorded: %s", sum.SessionID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, val)
	})
}

// LoadSessionSummary reads the terminal record for a session.
func (s *Store) LoadSessionSummary(sessionID string) (SessionSummary, error) {
	var sum SessionSummary
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionPrefix + sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sum)
		})
	})
	if err != nil {
		return SessionSummary{}, err
	}
	return sum, nil
}

// ListSessionIDs returns the IDs of every recorded session, in key
// order.
func (s *Store) ListSessionIDs() ([]string, error) {
	prefix := []byte(sessionPrefix)
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}
