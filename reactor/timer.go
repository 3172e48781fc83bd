// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"container/heap"
	"time"
)

// Timer invokes a callback after a timeout, and optionally at a repeating
// interval thereafter.
type Timer struct {
	handle
	cb     func(t *Timer) error
	due    time.Time
	repeat time.Duration
	seq    uint64
	index  int
}

// timerHeap orders timers by due time, then by start order.
type timerHeap []*Timer

var _ heap.Interface = (*timerHeap)(nil)

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if !h[i].due.Equal(h[j].due) {
		return h[i].due.Before(h[j].due)
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// NewTimer creates a stopped timer.
func NewTimer(loop *Loop) (*Timer, error) {
	t := &Timer{index: -1}
	t.loop = loop
	t.owner = t
	t.onStop = t.Stop
	if err := loop.register(&t.handle); err != nil {
		return nil, err
	}
	return t, nil
}

// Start (re)starts the timer. The callback is invoked once timeout has
// elapsed, relative to Loop.Now, then every repeat interval, if repeat is
// non-zero.
func (t *Timer) Start(cb func(t *Timer) error, timeout, repeat time.Duration) error {
	if cb == nil {
		return ErrNilCallback
	}
	if t.Closing() {
		return ErrHandleClosing
	}
	t.Stop()
	t.cb = cb
	t.repeat = max(repeat, 0)
	t.loop.scheduleTimer(t, max(timeout, 0))
	return nil
}

// Stop stops the timer. The callback will not be invoked until the timer is
// started again.
func (t *Timer) Stop() {
	if t.index >= 0 {
		heap.Remove(&t.loop.timers, t.index)
	}
	t.active.Store(false)
}

// Again restarts a repeating timer, using the repeat interval as the
// timeout. It has no effect if the timer has no repeat interval.
func (t *Timer) Again() error {
	if t.cb == nil {
		return ErrNilCallback
	}
	if t.repeat == 0 {
		return nil
	}
	return t.Start(t.cb, t.repeat, t.repeat)
}

// Due returns the time at which the timer will next fire. It is only
// meaningful while the timer is active.
func (t *Timer) Due() time.Time { return t.due }

// Repeat returns the repeat interval.
func (t *Timer) Repeat() time.Duration { return t.repeat }

func (l *Loop) scheduleTimer(t *Timer, timeout time.Duration) {
	t.due = l.now.Add(timeout)
	t.seq = l.timerSeq
	l.timerSeq++
	heap.Push(&l.timers, t)
	t.active.Store(true)
}
