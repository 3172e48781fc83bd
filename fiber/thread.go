// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import (
	"sync"
	"sync/atomic"
)

// Thread is an execution context, rooted at a single goroutine, within which
// at most one fiber runs at a time.
//
// Values may be attached to a thread, keyed like [context.Context] values.
// They are safe to access from any goroutine.
type Thread struct {
	root   *Fiber
	values sync.Map
	id     uint64
}

var (
	// goroutine ID -> *Fiber, for root fibers and running fiber goroutines
	registry  sync.Map
	threadIDs atomic.Uint64
	fiberIDs  atomic.Uint64
)

// Current returns the fiber running on the calling goroutine. If the
// goroutine is not a fiber, it becomes the root fiber of a new thread.
func Current() *Fiber {
	gid := goroutineID()
	if v, ok := registry.Load(gid); ok {
		return v.(*Fiber)
	}
	t := &Thread{id: threadIDs.Add(1)}
	t.root = newFiber(t, nil, nil)
	t.root.status.Store(statusActive)
	registry.Store(gid, t.root)
	return t.root
}

// Lookup is like Current, but returns nil instead of creating a root fiber.
func Lookup() *Fiber {
	if v, ok := registry.Load(goroutineID()); ok {
		return v.(*Fiber)
	}
	return nil
}

// Root returns the root fiber of the thread.
func (x *Thread) Root() *Fiber { return x.root }

// ID returns a process-unique identifier for the thread.
func (x *Thread) ID() uint64 { return x.id }

// Value returns the value associated with key, or nil.
func (x *Thread) Value(key any) any {
	v, _ := x.values.Load(key)
	return v
}

// LoadOrStore returns the existing value for key if present. Otherwise, it
// stores and returns value. The loaded result is true if the value was
// loaded, false if stored.
func (x *Thread) LoadOrStore(key, value any) (actual any, loaded bool) {
	return x.values.LoadOrStore(key, value)
}

// CompareAndDelete deletes the value for key if it is equal to old.
func (x *Thread) CompareAndDelete(key, old any) (deleted bool) {
	return x.values.CompareAndDelete(key, old)
}
