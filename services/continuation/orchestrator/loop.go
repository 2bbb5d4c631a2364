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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/discovery"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/events"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/generation"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/memory"
)

// runLoop drives one session from INIT to a terminal state. Runs on its
// own goroutine; the only writer of the run's state.
func (m *Manager) runLoop(ctx context.Context, r *run) {
	defer close(r.done)
	defer m.releaseSlot()

	dopts := []discovery.DiscovererOption{discovery.WithDiscovererLogger(m.logger)}
	if m.mem != nil {
		dopts = append(dopts, discovery.WithPatternSource(m.mem))
	}
	disc := discovery.NewDiscoverer(m.scorer, r.cfg, dopts...)

	initial := m.scorer.Score(r.session.Current.Output, nil, r.session.Current.TaskType, r.tctx)
	r.mu.Lock()
	r.initialScore = initial.Overall
	r.currentScore = initial.Overall
	r.bestScore = initial.Overall
	r.mu.Unlock()

	if err := m.transition(r, StateAssessing, "initial result scored"); err != nil {
		m.fail(r, err)
		m.finalize(r)
		return
	}

	if err := m.iterate(ctx, r, disc); err != nil {
		m.fail(r, err)
	}
	m.finalize(r)
}

// iterate runs the assess-select-generate-validate cycle until a
// terminal state is reached. A nil return means the run ended in
// STOPPED or SAFETY_HALTED; a non-nil return means ERROR.
func (m *Manager) iterate(ctx context.Context, r *run, disc *discovery.Discoverer) error {
	for {
		if reason, stopped := boundaryStop(ctx, r); stopped {
			return m.stop(r, reason)
		}

		// ASSESSING
		current := r.session.Current
		assessment := m.scorer.Score(current.Output, nil, current.TaskType, r.tctx)
		m.emitter.Emit(events.TypeQualityAssessed, r.session.ID, r.session.Iteration, events.QualityAssessedData{
			Overall:    assessment.Overall,
			Confidence: assessment.Confidence,
		})
		if assessment.Overall >= r.cfg.QualityThreshold {
			return m.stop(r, fmt.Sprintf("quality threshold reached (%.2f >= %.2f)",
				assessment.Overall, r.cfg.QualityThreshold))
		}

		opportunities := disc.Discover(current, r.tctx)
		if len(opportunities) == 0 {
			return m.stop(r, "no enhancement opportunities remain")
		}

		// SELECTING
		if err := m.transition(r, StateSelecting, "opportunities discovered"); err != nil {
			return err
		}
		if reason, stopped := boundaryStop(ctx, r); stopped {
			return m.stop(r, reason)
		}

		clearance := r.gate.ValidatePlan(opportunities, r.session)
		dec := m.engine.Decide(opportunities, r.session, clearance, r.tctx)
		if !dec.Continue {
			if !clearance.Allow {
				if clearance.ResourceExhausted {
					return m.stop(r, clearance.Reason)
				}
				return m.safetyHalt(r, clearance.Reason)
			}
			return m.stop(r, dec.Reasoning)
		}
		selected := *dec.Selected
		m.emitter.Emit(events.TypeOpportunitySelected, r.session.ID, r.session.Iteration, events.OpportunitySelectedData{
			Category:       selected.Category,
			Description:    selected.Description,
			CompositeScore: selected.CompositeScore,
		})

		// GENERATING
		if err := m.transition(r, StateGenerating, dec.Reasoning); err != nil {
			return err
		}
		if !r.gate.ReserveGenerationCall() {
			return m.stop(r, "generation call budget exhausted")
		}

		iterStart := time.Now()
		candidate, genErr := m.generator.Generate(ctx, m.buildPrompt(ctx, current, selected, r.tctx), generation.Params{
			TaskType: current.TaskType,
		})
		if genErr != nil {
			next, err := m.handleGenerationFailure(ctx, r, selected, genErr, iterStart)
			if err != nil {
				return err
			}
			if next {
				continue
			}
			return nil
		}
		r.gate.RecordSuccess()
		if m.metrics != nil {
			m.metrics.RecordGenerationCall("failover", true)
		}

		// VALIDATING
		if err := m.transition(r, StateValidating, "candidate produced"); err != nil {
			return err
		}
		candidateAssessment := m.scorer.Score(candidate, &current.Output, current.TaskType, r.tctx)
		delta := candidateAssessment.DeltaOrZero()
		m.emitter.Emit(events.TypeQualityAssessed, r.session.ID, r.session.Iteration, events.QualityAssessedData{
			Overall:    candidateAssessment.Overall,
			Delta:      candidateAssessment.Delta,
			Confidence: candidateAssessment.Confidence,
		})

		monitor := r.gate.Monitor(datatypes.ExecutionSnapshot{
			SessionID:         r.session.ID,
			Iteration:         r.session.Iteration + 1,
			IterationDuration: time.Since(iterStart),
			QualityDelta:      candidateAssessment.Delta,
			Content:           candidate,
		})
		if !monitor.Continue {
			m.settleIteration(r, selected, datatypes.OutcomeSafetyBlocked, monitor.Reason,
				candidateAssessment, iterStart)
			if monitor.ImmediateAction != datatypes.ActionRevert {
				return m.safetyHalt(r, monitor.Reason)
			}
			// Sub-critical finding: discard the candidate and keep going.
			m.logger.Warn("unsafe candidate discarded",
				"session_id", r.session.ID,
				"iteration", r.session.Iteration,
				"reason", monitor.Reason)
			if r.session.BudgetExhausted() {
				return m.stop(r, "iteration budget exhausted")
			}
			if !r.session.Autonomous {
				return m.stop(r, "single iteration completed, awaiting confirmation")
			}
			if err := m.transition(r, StateAssessing, "unsafe candidate discarded"); err != nil {
				return err
			}
			continue
		}

		outcome := datatypes.OutcomeAccepted
		reason := ""
		if delta < r.cfg.RevertTolerance {
			outcome = datatypes.OutcomeReverted
			reason = fmt.Sprintf("quality delta %.3f below revert tolerance %.3f",
				delta, r.cfg.RevertTolerance)
		}
		m.settleIteration(r, selected, outcome, reason, candidateAssessment, iterStart)

		if outcome == datatypes.OutcomeAccepted {
			r.mu.Lock()
			r.session.Current = datatypes.TaskResult{
				Success:   true,
				Output:    candidate,
				TaskType:  current.TaskType,
				Artifacts: current.Artifacts,
				Steps:     current.Steps,
				Iteration: r.session.Iteration,
			}
			r.currentScore = candidateAssessment.Overall
			if candidateAssessment.Overall > r.bestScore {
				r.bestScore = candidateAssessment.Overall
				r.best = r.session.Current
			}
			r.mu.Unlock()
		}

		if r.session.BudgetExhausted() {
			return m.stop(r, "iteration budget exhausted")
		}
		if !r.session.Autonomous {
			return m.stop(r, "single iteration completed, awaiting confirmation")
		}
		if err := m.transition(r, StateAssessing, "iteration settled"); err != nil {
			return err
		}
	}
}

// handleGenerationFailure settles a failed generation attempt.
//
// Outputs:
//
//	bool - True when the loop should continue with the next iteration.
//	error - Non-nil for fatal failures (non-retryable provider errors,
//	        or primary and fallback both failing), which terminate the
//	        session in ERROR.
func (m *Manager) handleGenerationFailure(ctx context.Context, r *run, selected datatypes.EnhancementOpportunity, genErr error, iterStart time.Time) (bool, error) {
	if m.metrics != nil {
		m.metrics.RecordGenerationCall("failover", false)
	}
	if ctx.Err() != nil {
		return false, m.stop(r, "context cancelled during generation")
	}
	if errors.Is(genErr, generation.ErrAllProvidersFailed) {
		// No third provider to try. The failed attempt still consumes an
		// iteration before the session terminates in ERROR.
		r.gate.RecordFailure()
		m.settleIteration(r, selected, datatypes.OutcomeFailed, "all generation providers failed",
			datatypes.QualityAssessment{Confidence: 1}, iterStart)
		return false, genErr
	}
	if pe, ok := generation.AsProviderError(genErr); ok && !pe.Retryable() {
		return false, genErr
	}

	r.gate.RecordFailure()
	m.logger.Warn("generation failed, recording failed iteration",
		"session_id", r.session.ID, "iteration", r.session.Iteration+1)
	m.emitter.Emit(events.TypeError, r.session.ID, r.session.Iteration, events.ErrorData{
		Message: "generation provider failure",
		Fatal:   false,
	})
	m.settleIteration(r, selected, datatypes.OutcomeFailed, "generation provider failure",
		datatypes.QualityAssessment{Confidence: 1}, iterStart)

	if r.session.BudgetExhausted() {
		return false, m.stop(r, "iteration budget exhausted")
	}
	if err := m.transition(r, StateAssessing, "generation failed, budget remains"); err != nil {
		return false, err
	}
	return true, nil
}

// settleIteration appends the iteration record, bumps the counter, and
// publishes outcome telemetry. Reverted and failed iterations count
// against the budget the same as accepted ones.
func (m *Manager) settleIteration(r *run, opp datatypes.EnhancementOpportunity, outcome datatypes.Outcome, reason string, assessment datatypes.QualityAssessment, iterStart time.Time) {
	elapsed := time.Since(iterStart)

	r.mu.Lock()
	r.session.Iteration++
	record := datatypes.EnhancementRecord{
		Iteration:   r.session.Iteration,
		Opportunity: opp,
		Outcome:     outcome,
		Reason:      reason,
		Assessment:  assessment,
		DurationMs:  elapsed.Milliseconds(),
		Timestamp:   time.Now().UnixMilli(),
	}
	r.session.History = append(r.session.History, record)
	iteration := r.session.Iteration
	taskType := r.session.Current.TaskType
	r.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordIteration(taskType.String(), outcome.String(),
			assessment.DeltaOrZero(), elapsed.Seconds())
	}
	m.emitter.Emit(events.TypeIterationComplete, r.session.ID, iteration, events.IterationCompleteData{
		Outcome:      outcome,
		QualityScore: assessment.Overall,
		DurationMs:   elapsed.Milliseconds(),
	})

	if m.mem != nil && (outcome == datatypes.OutcomeAccepted || outcome == datatypes.OutcomeReverted) {
		if err := m.mem.AppendPattern(memory.PatternRecord{
			SessionID: r.session.ID,
			TaskType:  taskType,
			Category:  opp.Category,
			Accepted:  outcome == datatypes.OutcomeAccepted,
			Delta:     assessment.DeltaOrZero(),
		}); err != nil {
			m.logger.Warn("pattern append failed", "session_id", r.session.ID, "error", err)
		}
	}
}

// buildPrompt assembles the enhancement prompt, grounding it with
// retrieved context when a retriever is configured. Retrieval failures
// degrade to the task context's own snippets.
func (m *Manager) buildPrompt(ctx context.Context, current datatypes.TaskResult, opp datatypes.EnhancementOpportunity, tctx datatypes.TaskContext) string {
	snippets := tctx.Snippets
	if m.retriever != nil && tctx.Query != "" {
		retrieved, err := m.retriever.Retrieve(ctx, tctx.Query)
		if err != nil {
			m.logger.Warn("context retrieval failed, proceeding without",
				"error", err)
		} else {
			snippets = append(snippets, retrieved...)
		}
	}
	return generation.BuildPrompt(current, opp, snippets)
}

// transition moves the run to a new state and emits the event.
func (m *Manager) transition(r *run, to State, reason string) error {
	r.mu.Lock()
	from := r.state
	if err := m.sm.Transition(from, to); err != nil {
		r.mu.Unlock()
		return err
	}
	r.state = to
	iteration := r.session.Iteration
	r.mu.Unlock()

	m.logger.Debug("state transition",
		"session_id", r.session.ID, "from", from.String(), "to", to.String(), "reason", reason)
	m.emitter.Emit(events.TypeStateTransition, r.session.ID, iteration, events.StateTransitionData{
		FromState: from.String(),
		ToState:   to.String(),
		Reason:    reason,
	})
	return nil
}

// stop ends the run in STOPPED with the given reason.
func (m *Manager) stop(r *run, reason string) error {
	if err := m.transition(r, StateStopped, reason); err != nil {
		return err
	}
	r.mu.Lock()
	r.stopReason = reason
	r.mu.Unlock()
	return nil
}

// safetyHalt ends the run in SAFETY_HALTED with the gate's reason.
func (m *Manager) safetyHalt(r *run, reason string) error {
	if err := m.transition(r, StateSafetyHalted, reason); err != nil {
		return err
	}
	r.mu.Lock()
	r.stopReason = reason
	r.mu.Unlock()
	m.emitter.Emit(events.TypeSafetyHalt, r.session.ID, r.session.Iteration, events.SafetyHaltData{
		Reason: reason,
	})
	return nil
}

// fail ends the run in ERROR with a sanitized error.
func (m *Manager) fail(r *run, err error) {
	sanitized := sanitizeError(err)
	m.logger.Error("continuation session failed",
		"session_id", r.session.ID, "error", err)

	r.mu.Lock()
	from := r.state
	r.state = StateError
	r.err = sanitized
	r.stopReason = sanitized.Error()
	iteration := r.session.Iteration
	r.mu.Unlock()

	m.emitter.Emit(events.TypeStateTransition, r.session.ID, iteration, events.StateTransitionData{
		FromState: from.String(),
		ToState:   StateError.String(),
		Reason:    sanitized.Error(),
	})
	m.emitter.Emit(events.TypeError, r.session.ID, iteration, events.ErrorData{
		Message: sanitized.Error(),
		Fatal:   true,
	})
}

// finalize publishes terminal telemetry and the audit record.
func (m *Manager) finalize(r *run) {
	r.mu.Lock()
	state := r.state
	reason := r.stopReason
	iterations := r.session.Iteration
	taskType := r.session.Current.TaskType
	initialScore := r.initialScore
	bestScore := r.bestScore
	history := make([]datatypes.EnhancementRecord, len(r.session.History))
	copy(history, r.session.History)
	startedAt := r.session.StartedAt
	r.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionEnded()
		m.metrics.RecordSessionEnd(taskType.String(), state.String())
	}
	m.emitter.Emit(events.TypeSessionEnd, r.session.ID, iterations, events.SessionEndData{
		TerminalState: state.String(),
		StopReason:    reason,
		FinalScore:    bestScore,
		Iterations:    iterations,
	})
	m.logger.Info("continuation session ended",
		"session_id", r.session.ID,
		"terminal_state", state.String(),
		"stop_reason", reason,
		"iterations", iterations,
		"initial_score", initialScore,
		"final_score", bestScore)

	if m.mem != nil {
		if err := m.mem.AppendSessionSummary(memory.SessionSummary{
			SessionID:     r.session.ID,
			TaskType:      taskType,
			TerminalState: state.String(),
			StopReason:    reason,
			Iterations:    iterations,
			InitialScore:  initialScore,
			FinalScore:    bestScore,
			History:       history,
			StartedAt:     startedAt,
			EndedAt:       time.Now(),
		}); err != nil {
			m.logger.Warn("session summary append failed",
				"session_id", r.session.ID, "error", err)
		}
	}
}

// boundaryStop checks the cooperative stop signals between phases.
func boundaryStop(ctx context.Context, r *run) (string, bool) {
	if ctx.Err() != nil {
		return "context cancelled", true
	}
	if r.stopRequested() {
		return "stop requested", true
	}
	return "", false
}
