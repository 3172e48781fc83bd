// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"slices"
)

type (
	// Prepare invokes a callback once per turn, immediately before polling.
	Prepare struct {
		handle
		cb func(p *Prepare) error
	}

	// Idle invokes a callback once per turn, before Prepare handles. While
	// any idle handle is active, polling does not block.
	Idle struct {
		handle
		cb func(i *Idle) error
	}
)

// NewPrepare creates a stopped prepare handle.
func NewPrepare(loop *Loop) (*Prepare, error) {
	p := &Prepare{}
	p.loop = loop
	p.owner = p
	p.onStop = p.Stop
	if err := loop.register(&p.handle); err != nil {
		return nil, err
	}
	return p, nil
}

// Start starts the handle, replacing any existing callback.
func (p *Prepare) Start(cb func(p *Prepare) error) error {
	if cb == nil {
		return ErrNilCallback
	}
	if p.Closing() {
		return ErrHandleClosing
	}
	p.cb = cb
	if !p.active.Swap(true) {
		p.loop.prepares = append(p.loop.prepares, p)
	}
	return nil
}

// Stop stops the handle.
func (p *Prepare) Stop() {
	if p.active.Swap(false) {
		p.loop.prepares = removeItem(p.loop.prepares, p)
	}
}

// NewIdle creates a stopped idle handle.
func NewIdle(loop *Loop) (*Idle, error) {
	i := &Idle{}
	i.loop = loop
	i.owner = i
	i.onStop = i.Stop
	if err := loop.register(&i.handle); err != nil {
		return nil, err
	}
	return i, nil
}

// Start starts the handle, replacing any existing callback.
func (i *Idle) Start(cb func(i *Idle) error) error {
	if cb == nil {
		return ErrNilCallback
	}
	if i.Closing() {
		return ErrHandleClosing
	}
	i.cb = cb
	if !i.active.Swap(true) {
		i.loop.idles = append(i.loop.idles, i)
	}
	return nil
}

// Stop stops the handle.
func (i *Idle) Stop() {
	if i.active.Swap(false) {
		i.loop.idles = removeItem(i.loop.idles, i)
	}
}

func removeItem[T comparable](s []T, v T) []T {
	if i := slices.Index(s, v); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}
