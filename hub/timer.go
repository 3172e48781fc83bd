// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-fiberhub/fiber"
	"github.com/joeycumines/go-fiberhub/reactor"
)

// Timer is a one-shot delayed callback, see Hub.CallLater.
type Timer struct {
	hub    *Hub
	handle *reactor.Timer
	fn     func() error
	// fired is claimed by whichever of fire or Cancel happens first
	fired atomic.Bool
}

// CallLater schedules fn to be called on the runner, once delay has
// elapsed. The returned timer is tracked by the hub until it fires, or is
// canceled.
func (h *Hub) CallLater(delay time.Duration, fn func()) (*Timer, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	return h.callLater(delay, func() error {
		fn()
		return nil
	})
}

func (h *Hub) callLater(delay time.Duration, fn func() error) (*Timer, error) {
	if err := h.checkOwner(); err != nil {
		return nil, err
	}

	handle, err := reactor.NewTimer(h.loop)
	if err != nil {
		return nil, err
	}

	t := &Timer{hub: h, handle: handle, fn: fn}
	// the cached time is stale, if the runner is suspended
	h.loop.UpdateTime()
	if err := handle.Start(t.fire, delay, 0); err != nil {
		handle.Close()
		return nil, err
	}
	h.timers[t] = struct{}{}

	return t, nil
}

// Pending indicates the timer has neither fired nor been canceled.
func (t *Timer) Pending() bool { return !t.fired.Load() }

// Cancel prevents the timer from firing, returning true if it was pending.
// Cancel is safe to call from any goroutine. If called from outside the
// hub's thread, the reactor resources are released asynchronously, via
// CallFromThread.
func (t *Timer) Cancel() bool {
	if !t.fired.CompareAndSwap(false, true) {
		return false
	}
	if f := fiber.Lookup(); f != nil && f.Thread() == t.hub.thread {
		t.release()
	} else if err := t.hub.CallFromThread(t.release); err != nil {
		t.hub.logger.Debug().Err(err).Uint64(`hub`, t.hub.id).Log(`hub: timer released with hub`)
	}
	return true
}

func (t *Timer) fire(*reactor.Timer) error {
	if !t.fired.CompareAndSwap(false, true) {
		return nil
	}
	defer t.release()
	return t.hub.dispatch(t.fn)
}

// release closes the reactor timer, and stops tracking t.
func (t *Timer) release() {
	t.fn = nil
	t.handle.Close()
	delete(t.hub.timers, t)
}

// discard marks t as no longer pending, after its handle was closed with
// the loop.
func (t *Timer) discard() {
	t.fired.Store(true)
	t.fn = nil
}
