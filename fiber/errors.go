// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import (
	"errors"
)

// Standard errors.
var (
	// ErrDead is returned when switching to a fiber that has finished.
	ErrDead = errors.New("fiber: cannot switch to a dead fiber")

	// ErrCrossThread is returned when an operation would link or switch
	// fibers of different threads.
	ErrCrossThread = errors.New("fiber: cannot switch to a fiber of another thread")

	// ErrCycle is returned by SetParent if the new parent link would create a
	// cycle.
	ErrCycle = errors.New("fiber: parent link would create a cycle")

	// ErrNilParent is returned by SetParent if the parent is nil.
	ErrNilParent = errors.New("fiber: parent must not be nil")

	// ErrKillCurrent is returned when a fiber attempts to kill itself.
	ErrKillCurrent = errors.New("fiber: cannot kill the current fiber")

	// errGoexit is delivered to the parent of a fiber whose goroutine called
	// runtime.Goexit, e.g. via testing.T.FailNow.
	errGoexit = errors.New("fiber: goroutine exited")
)
