// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"os"
	"os/signal"
	"sync"
)

// Signal invokes a callback, on the loop goroutine, for each OS signal
// received, of the kinds it was started with.
type Signal struct {
	handle
	cb      func(s *Signal, sig os.Signal) error
	async   *Async
	ch      chan os.Signal
	done    chan struct{}
	mu      sync.Mutex
	pending []os.Signal
}

// NewSignal creates a stopped signal handle.
func NewSignal(loop *Loop) (*Signal, error) {
	s := &Signal{}
	s.loop = loop
	s.owner = s
	s.onStop = s.Stop
	s.onFinal = s.finalize
	s.async = newAsync(loop, s.deliver)
	s.async.internal = true
	if err := loop.register(&s.handle); err != nil {
		return nil, err
	}
	if err := loop.register(&s.async.handle); err != nil {
		loop.unregister(&s.handle)
		return nil, err
	}
	loop.mu.Lock()
	loop.asyncs = append(loop.asyncs, s.async)
	loop.mu.Unlock()
	return s, nil
}

// Start starts (or restarts) the handle, to receive the given signals. At
// least one signal must be provided.
func (s *Signal) Start(cb func(s *Signal, sig os.Signal) error, sigs ...os.Signal) error {
	if cb == nil {
		return ErrNilCallback
	}
	if s.Closing() {
		return ErrHandleClosing
	}
	if len(sigs) == 0 {
		return errNoSignals
	}
	s.Stop()
	s.cb = cb
	s.ch = make(chan os.Signal, len(sigs))
	s.done = make(chan struct{})
	signal.Notify(s.ch, sigs...)
	go s.forward(s.ch, s.done)
	s.active.Store(true)
	return nil
}

// Stop stops receiving signals. Signals received but not yet delivered are
// discarded.
func (s *Signal) Stop() {
	if !s.active.Swap(false) {
		return
	}
	signal.Stop(s.ch)
	close(s.done)
	s.ch, s.done = nil, nil
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func (s *Signal) forward(ch <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig := <-ch:
			s.mu.Lock()
			s.pending = append(s.pending, sig)
			s.mu.Unlock()
			s.async.Send()
		}
	}
}

func (s *Signal) deliver(*Async) error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, sig := range pending {
		if !s.Active() {
			break
		}
		s.loop.invoke(func() error { return s.cb(s, sig) })
	}
	return nil
}

func (s *Signal) finalize() {
	s.async.Close()
}
