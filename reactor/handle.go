// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync/atomic"
)

// Handle is implemented by every handle type.
//
// A handle is active when it will invoke its callback, given the relevant
// event. Active, referenced handles keep the loop alive. Closing a handle
// stops it, and releases its resources at the end of the current turn (or
// immediately, during Loop.Close).
type Handle interface {
	// Loop returns the loop the handle belongs to.
	Loop() *Loop
	Active() bool
	Closing() bool
	// Close stops the handle, and schedules it for finalization. Calling
	// Close more than once has no effect.
	Close()
	// Ref and Unref toggle whether the handle keeps the loop alive, while
	// it is active. Handles are referenced by default.
	Ref()
	Unref()
	HasRef() bool

	base() *handle
}

// handle is embedded by all handle types.
type handle struct {
	loop  *Loop
	owner Handle
	// onStop is called (once) on close, before the handle is scheduled for
	// finalization
	onStop func()
	// onFinal is called (once) during finalization
	onFinal  func()
	internal bool
	active   atomic.Bool
	closing  atomic.Bool
	closed   atomic.Bool
	unref    atomic.Bool
}

func (x *handle) base() *handle { return x }

func (x *handle) Loop() *Loop { return x.loop }

func (x *handle) Active() bool { return x.active.Load() && !x.closing.Load() }

func (x *handle) Closing() bool { return x.closing.Load() }

func (x *handle) Ref() { x.unref.Store(false) }

func (x *handle) Unref() { x.unref.Store(true) }

func (x *handle) HasRef() bool { return !x.unref.Load() }

func (x *handle) Close() {
	if !x.closing.CompareAndSwap(false, true) {
		return
	}
	if x.onStop != nil {
		x.onStop()
	}
	x.active.Store(false)
	x.loop.scheduleClose(x)
}

func (x *handle) finalize() {
	if !x.closed.CompareAndSwap(false, true) {
		return
	}
	if x.onFinal != nil {
		x.onFinal()
	}
	x.loop.unregister(x)
}

// keepsAlive indicates if the handle prevents Run from returning.
func (x *handle) keepsAlive() bool {
	return !x.internal && x.Active() && x.HasRef()
}
