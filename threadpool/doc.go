// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package threadpool runs blocking work on worker goroutines, on behalf of
// fibers scheduled by a [hub.Hub].
//
// The calling fiber is suspended (via [hub.Hub.Switch]) while the work runs,
// and is resumed by the hub, once the worker has re-entered it using
// [hub.Hub.CallFromThread]. Other fibers continue to run in the meantime.
package threadpool
