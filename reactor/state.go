// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync/atomic"
)

// LoopState represents the current state of the loop.
//
//	StateAwake → StateRunning       [Run]
//	StateRunning → StateSleeping    [poll]
//	StateSleeping → StateRunning    [poll returned]
//	StateRunning → StateAwake       [Run returned]
//	StateAwake → StateClosed        [Close]
//
// StateClosed is terminal.
type LoopState uint32

const (
	// StateAwake indicates the loop is not running, and may be run.
	StateAwake LoopState = iota
	// StateRunning indicates Run is executing callbacks.
	StateRunning
	// StateSleeping indicates Run is blocked in poll.
	StateSleeping
	// StateClosed indicates the loop has been closed.
	StateClosed
)

func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding.
type fastState struct { // betteralign:ignore
	_ [64]byte      //nolint:unused
	v atomic.Uint32 // LoopState
	_ [60]byte      //nolint:unused
}

func (s *fastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store must only be used for irreversible transitions.
func (s *fastState) Store(state LoopState) {
	s.v.Store(uint32(state))
}

func (s *fastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// IsRunning returns true if the loop is running or sleeping.
func (s *fastState) IsRunning() bool {
	state := s.Load()
	return state == StateRunning || state == StateSleeping
}
