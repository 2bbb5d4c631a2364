// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared data model for the autonomous
// continuation system.
//
// The continuation loop takes an initial task result and iteratively
// improves it: discover enhancement opportunities, clear them through the
// safety gate, select one, regenerate, and validate the quality delta.
// This package holds the value types that flow between those components:
// TaskResult, EnhancementOpportunity, ContinuationSession, QualityAssessment,
// SafetyDecision, and the continuation configuration surface.
//
// Thread Safety:
//
//	All types here are plain values. The ContinuationSession is mutated
//	only by the orchestrator, which is its sole owner; every other
//	component receives it read-only and returns fresh values.
package datatypes

import (
	"errors"
	"fmt"
)

// ErrInvalidTaskType indicates a task-type tag outside the closed set.
var ErrInvalidTaskType = errors.New("invalid task type")

// TaskType tags a TaskResult with the kind of work that produced it.
//
// The set is closed. Per-type scoring rubrics and discovery strategies
// dispatch on this tag; adding a type means adding one rubric entry,
// never editing dispatch logic.
type TaskType string

const (
	// TaskCode is source-code generation output.
	TaskCode TaskType = "code"

	// TaskMultimedia is multimedia analysis output.
	TaskMultimedia TaskType = "multimedia"

	// TaskDocumentQA is document question-answering output.
	TaskDocumentQA TaskType = "document_qa"

	// TaskAutomation is automation-scripting output.
	TaskAutomation TaskType = "automation"

	// TaskAnalytics is data-analytics output.
	TaskAnalytics TaskType = "analytics"
)

// String returns the task type as a string.
func (t TaskType) String() string {
	return string(t)
}

// IsValid reports whether the task type is one of the closed set.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskCode, TaskMultimedia, TaskDocumentQA, TaskAutomation, TaskAnalytics:
		return true
	default:
		return false
	}
}

// AllTaskTypes returns every valid task type.
func AllTaskTypes() []TaskType {
	return []TaskType{
		TaskCode,
		TaskMultimedia,
		TaskDocumentQA,
		TaskAutomation,
		TaskAnalytics,
	}
}

// TaskResult is the atomic unit of work output.
//
// Description:
//
//	Created by the external generation capability and read-only once
//	created. Each enhancement iteration supersedes the previous result
//	with a new value rather than mutating it.
type TaskResult struct {
	// Success indicates the generation that produced this result succeeded.
	Success bool `json:"success"`

	// Output is the textual payload.
	Output string `json:"output"`

	// TaskType tags the kind of work this result came from.
	TaskType TaskType `json:"task_type"`

	// Artifacts references any generated artifacts (paths, URIs).
	Artifacts []string `json:"artifacts,omitempty"`

	// Steps is the ordered list of step descriptions taken to produce this.
	Steps []string `json:"steps,omitempty"`

	// Iteration is the continuation iteration that produced this result.
	// Zero for the initial result. Non-decreasing within a session.
	Iteration int `json:"iteration"`
}

// Validate checks structural invariants on the result.
//
// Outputs:
//
//	error - Non-nil if the task type is invalid or the iteration is negative.
func (r TaskResult) Validate() error {
	if !r.TaskType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskType, r.TaskType)
	}
	if r.Iteration < 0 {
		return fmt.Errorf("task result iteration must be non-negative, got %d", r.Iteration)
	}
	return nil
}
