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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eventWait = 2 * time.Second
	eventTick = 5 * time.Millisecond
)

func TestEmitter_SubscribeAndEmit(t *testing.T) {
	emitter := NewEmitter()
	var mu sync.Mutex
	var received []*Event
	emitter.Subscribe(func(e *Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	emitter.Emit(TypeSessionStart, "s-1", 0, nil)
	emitter.Emit(TypeIterationComplete, "s-1", 1, IterationCompleteData{QualityScore: 0.8})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, eventWait, eventTick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, TypeSessionStart, received[0].Type, "per-subscriber order is preserved")
	assert.Equal(t, "s-1", received[0].SessionID)
	assert.Equal(t, 1, received[1].Iteration)
	assert.NotEmpty(t, received[0].ID)
}

func TestEmitter_TypeFilter(t *testing.T) {
	emitter := NewEmitter()
	var halts atomic.Int64
	var all atomic.Int64
	emitter.Subscribe(func(*Event) { halts.Add(1) }, TypeSafetyHalt)
	emitter.Subscribe(func(*Event) { all.Add(1) })

	emitter.Emit(TypeSessionStart, "s-1", 0, nil)
	emitter.Emit(TypeSafetyHalt, "s-1", 2, SafetyHaltData{Reason: "circuit breaker open"})
	emitter.Emit(TypeSessionEnd, "s-1", 2, nil)

	require.Eventually(t, func() bool { return all.Load() == 3 }, eventWait, eventTick)
	assert.Equal(t, int64(1), halts.Load())
}

func TestEmitter_Unsubscribe(t *testing.T) {
	emitter := NewEmitter()
	var count atomic.Int64
	id := emitter.Subscribe(func(*Event) { count.Add(1) })

	emitter.Emit(TypeSessionStart, "s-1", 0, nil)
	require.Eventually(t, func() bool { return count.Load() == 1 }, eventWait, eventTick)

	assert.True(t, emitter.Unsubscribe(id))
	emitter.Emit(TypeSessionEnd, "s-1", 0, nil)

	assert.Never(t, func() bool { return count.Load() > 1 }, 200*time.Millisecond, 20*time.Millisecond)
	assert.False(t, emitter.Unsubscribe(id), "second removal is a no-op")
	assert.Zero(t, emitter.SubscriptionCount())
}

func TestEmitter_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	emitter := NewEmitter()
	emitter.Subscribe(func(*Event) { panic("subscriber bug") })
	var healthy atomic.Int64
	emitter.Subscribe(func(*Event) { healthy.Add(1) })

	assert.NotPanics(t, func() {
		emitter.Emit(TypeIterationComplete, "s-1", 1, nil)
	})
	require.Eventually(t, func() bool { return healthy.Load() == 1 }, eventWait, eventTick)
}

func TestEmitter_BlockingHandlerDoesNotStallEmit(t *testing.T) {
	emitter := NewEmitter()
	release := make(chan struct{})
	emitter.Subscribe(func(*Event) { <-release })
	var delivered atomic.Int64
	emitter.Subscribe(func(*Event) { delivered.Add(1) })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*subscriberQueueSize; i++ {
			emitter.Emit(TypeIterationComplete, "s-1", i, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(eventWait):
		t.Fatal("Emit blocked on a stuck subscriber")
	}
	require.Eventually(t, func() bool {
		return delivered.Load() >= int64(subscriberQueueSize)
	}, eventWait, eventTick, "healthy subscribers keep receiving")
	close(release)
}

func TestEmitter_FullQueueDropsOldest(t *testing.T) {
	emitter := NewEmitter()
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []int
	blocked := make(chan struct{})
	var once sync.Once
	emitter.Subscribe(func(e *Event) {
		once.Do(func() { close(blocked) })
		<-release
		mu.Lock()
		seen = append(seen, e.Iteration)
		mu.Unlock()
	})

	emitter.Emit(TypeIterationComplete, "s-1", 0, nil)
	<-blocked
	// The handler holds event 0; overfill the queue behind it.
	for i := 1; i <= subscriberQueueSize+10; i++ {
		emitter.Emit(TypeIterationComplete, "s-1", i, nil)
	}
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == subscriberQueueSize+10
	}, eventWait, eventTick, "the newest event is never the one dropped")

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, len(seen), subscriberQueueSize+2,
		"overflow evicts oldest pending events")
}

func TestEmitter_BufferEvictsOldest(t *testing.T) {
	emitter := NewEmitter(WithBufferSize(2))

	emitter.Emit(TypeSessionStart, "s-1", 0, nil)
	emitter.Emit(TypeIterationComplete, "s-1", 1, nil)
	emitter.Emit(TypeSessionEnd, "s-1", 1, nil)

	buffer := emitter.Buffer()
	require.Len(t, buffer, 2)
	assert.Equal(t, TypeIterationComplete, buffer[0].Type)
	assert.Equal(t, TypeSessionEnd, buffer[1].Type)
}

func TestEmitter_BufferByType(t *testing.T) {
	emitter := NewEmitter()
	emitter.Emit(TypeQualityAssessed, "s-1", 1, QualityAssessedData{Overall: 0.7})
	emitter.Emit(TypeSessionEnd, "s-1", 1, nil)
	emitter.Emit(TypeQualityAssessed, "s-1", 2, QualityAssessedData{Overall: 0.8})

	assessed := emitter.BufferByType(TypeQualityAssessed)

	require.Len(t, assessed, 2)
	assert.Equal(t, 2, assessed[1].Iteration)
}

func TestEmitter_ConcurrentEmit(t *testing.T) {
	emitter := NewEmitter(WithBufferSize(64))
	var count atomic.Int64
	emitter.Subscribe(func(*Event) { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				emitter.Emit(TypeIterationComplete, "s-1", n, nil)
			}
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return count.Load() == 80 }, eventWait, eventTick)
}

func TestMockEmitter_Records(t *testing.T) {
	mock := NewMockEmitter()
	var _ Sink = mock

	mock.Emit(TypeSessionStart, "s-1", 0, nil)
	mock.Emit(TypeSafetyHalt, "s-1", 3, SafetyHaltData{Reason: "halt"})

	assert.Equal(t, 2, mock.EventCount())
	halts := mock.EventsByType(TypeSafetyHalt)
	require.Len(t, halts, 1)
	assert.Equal(t, 3, halts[0].Iteration)
}
