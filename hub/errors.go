// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"errors"
)

// Standard errors.
var (
	// ErrAlreadyRunning is returned by New if a hub is already bound to the
	// calling thread.
	ErrAlreadyRunning = errors.New("hub: cannot create more than one hub per thread")

	// ErrNotRunning is returned if no hub (or a different hub) is bound to
	// the calling thread.
	ErrNotRunning = errors.New("hub: no hub is bound to the current thread")

	// ErrWrongThread is returned when a method is called from a thread other
	// than the one the hub was created on.
	ErrWrongThread = errors.New("hub: must be called from the thread the hub was created on")

	// ErrAlreadyDestroyed is returned by operations on a destroyed hub.
	ErrAlreadyDestroyed = errors.New("hub: hub has been destroyed")

	// ErrWrongCaller is returned by Join, if not called by the runner's
	// parent, and by Destroy, if called by the runner.
	ErrWrongCaller = errors.New("hub: operation not permitted from the calling fiber")

	// ErrAlreadyStopped is returned once the runner has finished.
	ErrAlreadyStopped = errors.New("hub: hub has already ended")

	// ErrInvalidSwitch is returned when the runner attempts to switch to
	// itself.
	ErrInvalidSwitch = errors.New("hub: cannot switch to the loop from the loop")

	// ErrNilFunc is returned when a nil callback is provided.
	ErrNilFunc = errors.New("hub: nil func")
)
