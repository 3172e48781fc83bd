// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package threadpool

import (
	"errors"
)

var (
	// ErrClosed is returned by Run and Close, once the pool is closed.
	ErrClosed = errors.New("threadpool: pool closed")

	// ErrNilFunc is returned by Run, if given a nil func.
	ErrNilFunc = errors.New("threadpool: nil func")

	// ErrUnexpectedResume is returned by Run, if the calling fiber was
	// resumed by something other than the pool.
	ErrUnexpectedResume = errors.New("threadpool: fiber resumed before the work completed")
)
