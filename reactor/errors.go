// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
)

// Standard errors.
var (
	// ErrLoopRunning is returned by Run, if the loop is already running, and
	// by Close, if it is called while Run is in progress.
	ErrLoopRunning = errors.New("reactor: loop is already running")

	// ErrLoopClosed is returned when operations are attempted on a closed
	// loop.
	ErrLoopClosed = errors.New("reactor: loop is closed")

	// ErrHandleClosing is returned when starting a handle that has been
	// closed.
	ErrHandleClosing = errors.New("reactor: handle is closing")

	// ErrNilCallback is returned when starting a handle without a callback.
	ErrNilCallback = errors.New("reactor: nil callback")

	errNoSignals = errors.New("reactor: no signals specified")

	ErrFDOutOfRange        = errors.New("reactor: fd out of range (max 100000000)")
	ErrFDAlreadyRegistered = errors.New("reactor: fd already registered")
	ErrFDNotRegistered     = errors.New("reactor: fd not registered")
	ErrPollerClosed        = errors.New("reactor: poller closed")
)
