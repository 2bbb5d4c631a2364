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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianContinuum/services/continuation/datatypes"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/decision"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/events"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/generation"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/memory"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/observability"
	"github.com/AleutianAI/AleutianContinuum/services/continuation/safety"
)

// Assessor is the slice of the quality scorer the orchestrator needs.
type Assessor interface {
	Score(candidate string, previous *string, taskType datatypes.TaskType, tctx datatypes.TaskContext) datatypes.QualityAssessment
}

// Memory is the slice of the learning store the orchestrator writes to.
// Both writes are best-effort audit appends off the decision path.
type Memory interface {
	AppendPattern(rec memory.PatternRecord) error
	AppendSessionSummary(sum memory.SessionSummary) error
	SuccessRate(taskType datatypes.TaskType, category datatypes.OpportunityCategory) (float64, int, error)
}

// Status is a point-in-time snapshot of a running or finished session.
type Status struct {
	SessionID    string        `json:"session_id"`
	State        State         `json:"state"`
	Iteration    int           `json:"iteration"`
	CurrentScore float64       `json:"current_score"`
	BestScore    float64       `json:"best_score"`
	Elapsed      time.Duration `json:"elapsed"`
	StopReason   string        `json:"stop_reason,omitempty"`
}

// FinalResult is the consolidated outcome of a terminal session. Result
// always carries the best-scoring output observed, which is the initial
// input when no iteration improved on it.
type FinalResult struct {
	SessionID     string                        `json:"session_id"`
	Result        datatypes.TaskResult          `json:"result"`
	InitialScore  float64                       `json:"initial_score"`
	FinalScore    float64                       `json:"final_score"`
	TerminalState State                         `json:"terminal_state"`
	StopReason    string                        `json:"stop_reason"`
	Iterations    int                           `json:"iterations"`
	History       []datatypes.EnhancementRecord `json:"history"`
	Err           error                         `json:"-"`
}

// run is the orchestrator's private state for one session. All fields
// behind mu; done closes when the loop exits.
type run struct {
	mu sync.Mutex

	session *datatypes.ContinuationSession
	tctx    datatypes.TaskContext
	cfg     datatypes.Config
	gate    *safety.Gate

	state        State
	initialScore float64
	currentScore float64
	best         datatypes.TaskResult
	bestScore    float64
	stopReason   string
	err          error

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func (r *run) requestStop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *run) stopRequested() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

// Manager starts and supervises continuation sessions.
//
// Description:
//
//	Owns the session registry and the shared generation-call budget.
//	Each Start spawns one goroutine running the continuation loop;
//	control methods are snapshot reads or signal writes and never block
//	on a running loop.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	runs    map[string]*run
	active  int
	maxRuns int

	sm        *StateMachine
	scorer    Assessor
	engine    *decision.Engine
	generator generation.Generator
	retriever generation.ContextRetriever
	emitter   events.Sink
	metrics   *observability.Metrics
	mem       Memory
	scanner   *safety.ContentScanner
	calls     *safety.CallLimiter
	logger    *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithEmitter sets the progress event sink.
func WithEmitter(emitter events.Sink) ManagerOption {
	return func(m *Manager) {
		if emitter != nil {
			m.emitter = emitter
		}
	}
}

// WithMetrics sets the Prometheus metrics instance.
func WithMetrics(metrics *observability.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithMemory sets the learning memory. When present, iteration outcomes
// feed the pattern bank and terminal sessions are written to the audit
// log; the discoverer also reads historical success rates from it.
func WithMemory(mem Memory) ManagerOption {
	return func(m *Manager) {
		m.mem = mem
	}
}

// WithRetriever sets the context retriever used to ground prompts.
func WithRetriever(retriever generation.ContextRetriever) ManagerOption {
	return func(m *Manager) {
		m.retriever = retriever
	}
}

// WithDecisionWeights overrides the decision engine weighting.
func WithDecisionWeights(w decision.Weights) ManagerOption {
	return func(m *Manager) {
		m.engine = decision.NewEngine(decision.WithWeights(w))
	}
}

// WithMaxConcurrentSessions limits concurrent sessions (0 = unlimited).
func WithMaxConcurrentSessions(limit int) ManagerOption {
	return func(m *Manager) {
		m.maxRuns = limit
	}
}

// NewManager creates a session manager.
//
// Inputs:
//
//	scorer - Quality scorer shared by assessment and discovery.
//	generator - Generation client, typically a FailoverClient.
//	opts - Optional collaborators.
//
// Outputs:
//
//	*Manager - Ready to start sessions.
//	error - Non-nil when the content scanner fails to load.
func NewManager(scorer Assessor, generator generation.Generator, opts ...ManagerOption) (*Manager, error) {
	scanner, err := safety.NewContentScanner()
	if err != nil {
		return nil, fmt.Errorf("load content scanner: %w", err)
	}

	m := &Manager{
		runs:      make(map[string]*run),
		sm:        NewStateMachine(),
		scorer:    scorer,
		engine:    decision.NewEngine(),
		generator: generator,
		emitter:   events.NewEmitter(),
		scanner:   scanner,
		calls:     safety.NewCallLimiter(datatypes.HardMaxCallsPerHour),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start begins a continuation session from a completed task result.
//
// Description:
//
//	Validates the input, registers the session, and launches the loop
//	goroutine. The returned ID is usable immediately with GetStatus,
//	RequestStop, and GetFinalResult. The ctx governs the whole session:
//	cancelling it stops the loop at the next iteration boundary.
//
// Outputs:
//
//	string - The session ID.
//	error - Non-nil when the input or config is invalid, or the
//	        concurrent session limit is reached.
func (m *Manager) Start(ctx context.Context, initial datatypes.TaskResult, tctx datatypes.TaskContext, cfg datatypes.Config) (string, error) {
	if err := initial.Validate(); err != nil {
		return "", fmt.Errorf("invalid initial result: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid config: %w", err)
	}
	if err := m.acquireSlot(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	session := &datatypes.ContinuationSession{
		ID:            id,
		Initial:       initial,
		Current:       initial,
		StartedAt:     time.Now(),
		MaxIterations: cfg.EffectiveMaxIterations(),
		MaxDuration:   cfg.MaxDuration(),
		Autonomous:    cfg.Autonomous,
	}
	limits := safety.NewResourceLimits(cfg, m.calls)
	breakerCfg := safety.DefaultCircuitBreakerConfig()
	breakerCfg.OnStateChange = func(from, to safety.CircuitState, reason safety.TripReason) {
		m.logger.Warn("circuit breaker transition",
			"session_id", id, "from", from.String(), "to", to.String(), "reason", string(reason))
		if m.metrics != nil && to == safety.CircuitOpen {
			m.metrics.RecordBreakerTrip(string(reason))
		}
	}
	r := &run{
		session: session,
		tctx:    tctx,
		cfg:     cfg,
		gate: safety.NewGate(id, cfg, limits, m.scanner,
			safety.WithGateLogger(m.logger),
			safety.WithBreakerConfig(breakerCfg)),
		state:   StateInit,
		best:    initial,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	m.runs[id] = r
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionStarted()
	}
	m.emitter.Emit(events.TypeSessionStart, id, 0, nil)
	m.logger.Info("continuation session started",
		"session_id", id,
		"task_type", initial.TaskType.String(),
		"mode", string(cfg.Mode),
		"max_iterations", session.MaxIterations)

	go m.runLoop(ctx, r)
	return id, nil
}

// RequestStop asks a session to stop at the next iteration boundary.
// The in-flight iteration completes first; this is a cooperative stop,
// not an abort.
func (m *Manager) RequestStop(sessionID string) error {
	r, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	r.requestStop()
	return nil
}

// GetStatus returns a snapshot of a session.
func (m *Manager) GetStatus(sessionID string) (Status, error) {
	r, err := m.lookup(sessionID)
	if err != nil {
		return Status{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		SessionID:    sessionID,
		State:        r.state,
		Iteration:    r.session.Iteration,
		CurrentScore: r.currentScore,
		BestScore:    r.bestScore,
		Elapsed:      r.session.Elapsed(),
		StopReason:   r.stopReason,
	}, nil
}

// Wait blocks until the session reaches a terminal state or ctx ends.
func (m *Manager) Wait(ctx context.Context, sessionID string) error {
	r, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetFinalResult returns the consolidated result of a terminal session.
//
// Outputs:
//
//	FinalResult - Best output observed, scores, and the full history.
//	error - ErrSessionNotFound or ErrSessionActive.
func (m *Manager) GetFinalResult(sessionID string) (FinalResult, error) {
	r, err := m.lookup(sessionID)
	if err != nil {
		return FinalResult{}, err
	}

	select {
	case <-r.done:
	default:
		return FinalResult{}, ErrSessionActive
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	history := make([]datatypes.EnhancementRecord, len(r.session.History))
	copy(history, r.session.History)
	return FinalResult{
		SessionID:     sessionID,
		Result:        r.best,
		InitialScore:  r.initialScore,
		FinalScore:    r.bestScore,
		TerminalState: r.state,
		StopReason:    r.stopReason,
		Iterations:    r.session.Iteration,
		History:       history,
		Err:           r.err,
	}, nil
}

// ListSessions returns the IDs of all registered sessions.
func (m *Manager) ListSessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) lookup(sessionID string) (*run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return r, nil
}

func (m *Manager) acquireSlot() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxRuns > 0 && m.active >= m.maxRuns {
		return fmt.Errorf("maximum concurrent sessions reached (%d)", m.maxRuns)
	}
	m.active++
	return nil
}

func (m *Manager) releaseSlot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active > 0 {
		m.active--
	}
}
