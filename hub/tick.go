// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"github.com/eapache/queue"
	"github.com/joeycumines/go-fiberhub/reactor"
)

// NextTick schedules fn to be called on the runner, at the start of the
// next turn of the reactor, before it blocks for I/O. Callbacks scheduled
// before a turn are called in order, in that turn, and callbacks scheduled
// by those callbacks are deferred to the following turn.
//
// An error or panic from one callback does not prevent the rest from
// running.
func (h *Hub) NextTick(fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	if err := h.checkOwner(); err != nil {
		return err
	}
	return h.nextTick(func() error {
		fn()
		return nil
	})
}

func (h *Hub) nextTick(fn func() error) error {
	if h.ticks == nil || h.tickPrepare.Closing() {
		return ErrAlreadyStopped
	}

	h.ticks.Add(fn)

	if !h.tickPrepare.Active() {
		if err := h.tickPrepare.Start(h.flushTicks); err != nil {
			return err
		}
		// keeps the poll from blocking, until the flush
		if err := h.tickIdle.Start(stopIdle); err != nil {
			return err
		}
		h.tickArmings.Add(1)
	}

	return nil
}

func (h *Hub) flushTicks(*reactor.Prepare) error {
	h.tickPrepare.Stop()
	h.tickIdle.Stop()

	ticks := h.ticks
	h.ticks = queue.New()

	for ticks.Length() != 0 {
		fn := ticks.Remove().(func() error)
		if err := h.dispatch(fn); err != nil {
			h.handleError(err)
		}
	}

	return nil
}

func stopIdle(i *reactor.Idle) error {
	i.Stop()
	return nil
}
