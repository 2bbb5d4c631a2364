// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that processes events.
type Handler func(event *Event)

// Sink receives progress events. The orchestrator depends on this
// interface so tests can substitute a MockEmitter.
type Sink interface {
	Emit(eventType Type, sessionID string, iteration int, data any)
}

// Emitter broadcasts events to subscribers and keeps a bounded replay
// buffer of recent events.
//
// Thread Safety: Emitter is safe for concurrent use.
type Emitter struct {
	mu            sync.RWMutex
	subscriptions map[string]subscription
	buffer        []Event
	bufferSize    int
}

// subscriberQueueSize bounds each subscriber's delivery queue. A full
// queue drops the oldest pending event so the newest one always lands.
const subscriberQueueSize = 256

type subscription struct {
	handler Handler
	types   []Type
	queue   chan *Event
	quit    chan struct{}
}

// pump delivers queued events to the handler on a dedicated goroutine,
// draining anything still pending when the subscription is removed.
func (s subscription) pump() {
	for {
		select {
		case event := <-s.queue:
			safeInvoke(s.handler, event)
		case <-s.quit:
			for {
				select {
				case event := <-s.queue:
					safeInvoke(s.handler, event)
				default:
					return
				}
			}
		}
	}
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithBufferSize sets the replay buffer size.
func WithBufferSize(size int) EmitterOption {
	return func(e *Emitter) {
		if size > 0 {
			e.bufferSize = size
		}
	}
}

// NewEmitter creates a new event emitter.
func NewEmitter(opts ...EmitterOption) *Emitter {
	e := &Emitter{
		subscriptions: make(map[string]subscription),
		bufferSize:    1000,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.buffer = make([]Event, 0, e.bufferSize)
	return e
}

// Subscribe registers a handler for events.
//
// Inputs:
//
//	handler - Function to call for each event.
//	types - Event types to subscribe to (nil = all types).
//
// Outputs:
//
//	string - Subscription ID for unsubscribing.
func (e *Emitter) Subscribe(handler Handler, types ...Type) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.NewString()
	sub := subscription{
		handler: handler,
		types:   types,
		queue:   make(chan *Event, subscriberQueueSize),
		quit:    make(chan struct{}),
	}
	e.subscriptions[id] = sub
	go sub.pump()
	return id
}

// Unsubscribe removes a subscription. Events already queued for the
// subscriber are still delivered; new ones are not.
func (e *Emitter) Unsubscribe(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sub, ok := e.subscriptions[id]; ok {
		delete(e.subscriptions, id)
		close(sub.quit)
		return true
	}
	return false
}

// Emit broadcasts an event to all matching subscribers.
//
// Description:
//
//	Builds the event, appends it to the replay buffer (evicting the
//	oldest entry when full), and enqueues it on each matching
//	subscriber's buffered queue. Delivery is fire and forget: handlers
//	run on their own goroutine, a full queue drops its oldest pending
//	event, and handler panics are recovered. Emit never blocks on a
//	slow or stuck subscriber.
//
// Thread Safety: This method is safe for concurrent use.
func (e *Emitter) Emit(eventType Type, sessionID string, iteration int, data any) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Iteration: iteration,
		Timestamp: time.Now(),
		Data:      data,
	}

	e.mu.Lock()
	if len(e.buffer) >= e.bufferSize {
		e.buffer = e.buffer[1:]
	}
	e.buffer = append(e.buffer, event)
	subs := make([]subscription, 0, len(e.subscriptions))
	for _, sub := range e.subscriptions {
		subs = append(subs, sub)
	}
	e.mu.Unlock()

	for _, sub := range subs {
		if matchesType(sub.types, eventType) {
			sub.enqueue(&event)
		}
	}
}

// enqueue offers the event without blocking, evicting the oldest pending
// event when the queue is full.
func (s subscription) enqueue(event *Event) {
	select {
	case s.queue <- event:
		return
	default:
	}
	select {
	case <-s.queue:
	default:
	}
	select {
	case s.queue <- event:
	default:
	}
}

// safeInvoke calls a handler with panic recovery.
func safeInvoke(handler Handler, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked",
				"event_type", event.Type,
				"event_id", event.ID,
				"panic", r,
			)
		}
	}()
	handler(event)
}

func matchesType(types []Type, t Type) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// Buffer returns a copy of the replay buffer.
func (e *Emitter) Buffer() []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()

	events := make([]Event, len(e.buffer))
	copy(events, e.buffer)
	return events
}

// BufferByType returns buffered events of a specific type.
func (e *Emitter) BufferByType(eventType Type) []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var events []Event
	for _, event := range e.buffer {
		if event.Type == eventType {
			events = append(events, event)
		}
	}
	return events
}

// SubscriptionCount returns the number of active subscriptions.
func (e *Emitter) SubscriptionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscriptions)
}

// MockEmitter records emitted events for test assertions.
type MockEmitter struct {
	mu     sync.RWMutex
	Events []Event
}

// NewMockEmitter creates a new mock emitter.
func NewMockEmitter() *MockEmitter {
	return &MockEmitter{Events: make([]Event, 0)}
}

// Emit records an event.
func (m *MockEmitter) Emit(eventType Type, sessionID string, iteration int, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = append(m.Events, Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Iteration: iteration,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// EventsByType returns recorded events of a specific type.
func (m *MockEmitter) EventsByType(eventType Type) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []Event
	for _, e := range m.Events {
		if e.Type == eventType {
			events = append(events, e)
		}
	}
	return events
}

// EventCount returns the number of recorded events.
func (m *MockEmitter) EventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Events)
}
