// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"time"

	"github.com/joeycumines/go-fiberhub/fiber"
)

// Spawn creates a fiber running fn, parented to the runner, and starts it
// on the next tick. An error returned by fn is handled like any other
// callback error.
func (h *Hub) Spawn(fn func() error) (*fiber.Fiber, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if err := h.checkOwner(); err != nil {
		return nil, err
	}
	f := fiber.New(func(any) (any, error) { return nil, fn() })
	if err := f.SetParent(h.runner); err != nil {
		return nil, err
	}
	if err := h.nextTick(func() error { return h.resume(f, nil) }); err != nil {
		_ = f.Kill()
		return nil, err
	}
	return f, nil
}

// Sleep suspends the calling fiber for at least d. It must not be called by
// the runner. If the caller is resumed early, e.g. by Kill, the timer is
// canceled, and the error (if any) is returned.
func (h *Hub) Sleep(d time.Duration) error {
	current := fiber.Lookup()
	if current == nil || current.Thread() != h.thread {
		return ErrWrongThread
	}
	if current == h.runner {
		return ErrInvalidSwitch
	}
	t, err := h.callLater(d, func() error { return h.resume(current, nil) })
	if err != nil {
		return err
	}
	_, err = h.Switch()
	t.Cancel()
	return err
}
