// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-fiberhub/reactor"
)

// Waker wakes the reactor from any goroutine, without a payload. Wakes
// that occur before the reactor observes the first are coalesced. The
// waker does not keep the hub alive.
type Waker struct {
	async *reactor.Async
}

func newWaker(loop *reactor.Loop) (*Waker, error) {
	a, err := reactor.NewAsync(loop, func(*reactor.Async) error { return nil })
	if err != nil {
		return nil, err
	}
	a.Unref()
	return &Waker{async: a}, nil
}

// Waker returns the hub's waker, or nil if the hub has been destroyed.
func (h *Hub) Waker() *Waker { return h.waker }

// Wake interrupts the reactor's poll. Safe to call from any goroutine.
func (w *Waker) Wake() error {
	if w == nil {
		return ErrAlreadyDestroyed
	}
	if w.async.Closing() {
		return ErrAlreadyStopped
	}
	w.async.Send()
	return nil
}

// CallFromThread schedules fn to be called on the runner. It is the only
// way for other goroutines (e.g. worker pools) to interact with the hub,
// and is safe to call from any goroutine. Each call results in exactly one
// call to fn, in the order the calls were made, unless the hub stops first.
//
// The pending call keeps the hub alive.
func (h *Hub) CallFromThread(fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	return h.callFromThread(func() error {
		fn()
		return nil
	})
}

func (h *Hub) callFromThread(fn func() error) error {
	if h.destroyed.Load() {
		return ErrAlreadyDestroyed
	}
	if h.runner.Dead() {
		return ErrAlreadyStopped
	}
	// the handle is fully constructed before it can be sent
	a, err := reactor.NewAsync(h.loop, func(a *reactor.Async) error {
		defer a.Close()
		return h.dispatch(fn)
	})
	if err != nil {
		return fmt.Errorf("hub: call from thread: %w", err)
	}
	a.Send()
	return nil
}

// KeepAlive prevents the reactor from running out of work, until the
// returned release function is called. The release function is safe to
// call from any goroutine, and more than once.
func (h *Hub) KeepAlive() (release func(), err error) {
	if h.destroyed.Load() {
		return nil, ErrAlreadyDestroyed
	}
	if h.runner.Dead() {
		return nil, ErrAlreadyStopped
	}
	a, err := reactor.NewAsync(h.loop, func(a *reactor.Async) error {
		a.Close()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hub: keep alive: %w", err)
	}
	return sync.OnceFunc(a.Send), nil
}
