// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package safety

import "time"

// ringBuffer is a fixed-capacity FIFO that evicts the oldest element on
// overflow. Not thread-safe; the gate serializes access.
type ringBuffer[T any] struct {
	items []T
	head  int
	size  int
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ringBuffer[T]{items: make([]T, capacity)}
}

// Push appends an item, evicting the oldest when full.
func (r *ringBuffer[T]) Push(item T) {
	idx := (r.head + r.size) % len(r.items)
	r.items[idx] = item
	if r.size < len(r.items) {
		r.size++
	} else {
		r.head = (r.head + 1) % len(r.items)
	}
}

// Len returns the number of stored items.
func (r *ringBuffer[T]) Len() int {
	return r.size
}

// Slice returns items oldest first.
func (r *ringBuffer[T]) Slice() []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(r.head+i)%len(r.items)])
	}
	return out
}

// perfWindow tracks iteration durations and detects degradation: the
// recent average exceeding the baseline average by a factor.
//
// The baseline is the first baselineN iterations of the session; recent
// is a rolling window of the same width. Degradation cannot be declared
// until both windows are full, so short sessions never trip on noise.
type perfWindow struct {
	baseline  []time.Duration
	recent    *ringBuffer[time.Duration]
	baselineN int
	factor    float64
}

func newPerfWindow(baselineN int, factor float64) *perfWindow {
	return &perfWindow{
		recent:    newRingBuffer[time.Duration](baselineN),
		baselineN: baselineN,
		factor:    factor,
	}
}

// Record adds one iteration duration.
func (w *perfWindow) Record(d time.Duration) {
	if len(w.baseline) < w.baselineN {
		w.baseline = append(w.baseline, d)
		return
	}
	w.recent.Push(d)
}

// Degraded reports whether the recent average exceeds factor times the
// baseline average.
func (w *perfWindow) Degraded() bool {
	if len(w.baseline) < w.baselineN || w.recent.Len() < w.baselineN {
		return false
	}
	var baseSum, recentSum time.Duration
	for _, d := range w.baseline {
		baseSum += d
	}
	for _, d := range w.recent.Slice() {
		recentSum += d
	}
	baseAvg := float64(baseSum) / float64(len(w.baseline))
	recentAvg := float64(recentSum) / float64(w.recent.Len())
	if baseAvg == 0 {
		return false
	}
	return recentAvg > w.factor*baseAvg
}

// deltaWindow tracks quality deltas and detects sustained decline:
// at least declineN consecutive negative deltas.
type deltaWindow struct {
	consecutiveNegative int
	declineN            int
}

func newDeltaWindow(declineN int) *deltaWindow {
	return &deltaWindow{declineN: declineN}
}

// Record adds one quality delta.
func (w *deltaWindow) Record(delta float64) {
	if delta < 0 {
		w.consecutiveNegative++
	} else {
		w.consecutiveNegative = 0
	}
}

// Declining reports whether the sustained-decline threshold is met.
func (w *deltaWindow) Declining() bool {
	return w.consecutiveNegative >= w.declineN
}
