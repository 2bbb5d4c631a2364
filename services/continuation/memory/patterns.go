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
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
)

const patternPrefix = "pattern/"

// PatternRecord is one enhancement outcome, appended after an iteration
// settles. Accepted records with positive deltas are what make a
// category's suggestions credible for future sessions.
type PatternRecord struct {
	SessionID string                        `json:"session_id"`
	TaskType  datatypes.TaskType            `json:"task_type"`
	Category  datatypes.OpportunityCategory `json:"category"`
	Accepted  bool                          `json:"accepted"`
	Delta     float64                       `json:"delta"`
	Timestamp time.Time                     `json:"timestamp"`
}

// AppendPattern appends one outcome record. Records are never updated
// or deleted.
func (s *Store) AppendPattern(rec PatternRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pattern record: %w", err)
	}
	key := patternKey(rec.TaskType, rec.Category) + uuid.NewString()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// SuccessRate aggregates the recorded outcomes for a task type and
// category pair.
//
// Outputs:
//
//	rate - Fraction of recorded outcomes that were accepted. Zero when
//	       no records exist.
//	samples - Number of records aggregated. Callers gate on this before
//	          trusting the rate.
//	error - Non-nil only on a storage failure.
func (s *Store) SuccessRate(taskType datatypes.TaskType, category datatypes.OpportunityCategory) (float64, int, error) {
	prefix := []byte(patternKey(taskType, category))

	var accepted, total int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec PatternRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode pattern record: %w", err)
				}
				total++
				if rec.Accepted {
					accepted++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate success rate: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(accepted) / float64(total), total, nil
}

func patternKey(taskType datatypes.TaskType, category datatypes.OpportunityCategory) string {
	return patternPrefix + string(taskType) + "/" + string(category) + "/"
}
