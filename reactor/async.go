// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"slices"
	"sync/atomic"
)

// Async invokes a callback on the loop goroutine, after Send is called from
// any goroutine. Sends that occur before the callback runs are coalesced.
//
// An async handle is active until it is closed.
type Async struct {
	handle
	cb      func(a *Async) error
	pending atomic.Bool
}

// NewAsync creates an active async handle. Unlike other handle
// constructors, it is safe to call from any goroutine.
func NewAsync(loop *Loop, cb func(a *Async) error) (*Async, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	a := newAsync(loop, cb)
	if err := loop.register(&a.handle); err != nil {
		return nil, err
	}
	loop.mu.Lock()
	loop.asyncs = append(loop.asyncs, a)
	loop.mu.Unlock()
	return a, nil
}

func newAsync(loop *Loop, cb func(a *Async) error) *Async {
	a := &Async{cb: cb}
	a.loop = loop
	a.owner = a
	a.onFinal = a.remove
	a.active.Store(true)
	return a
}

// Send schedules the callback. Safe to call from any goroutine. It has no
// effect if the handle is closing.
func (a *Async) Send() {
	if a.Closing() {
		return
	}
	if a.pending.CompareAndSwap(false, true) {
		a.loop.wake()
	}
}

func (a *Async) remove() {
	a.loop.mu.Lock()
	defer a.loop.mu.Unlock()
	if i := slices.Index(a.loop.asyncs, a); i >= 0 {
		a.loop.asyncs = slices.Delete(a.loop.asyncs, i, i+1)
	}
}
