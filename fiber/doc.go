// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package fiber implements stackful, cooperatively scheduled fibers.
//
// Each [Fiber] runs on its own goroutine, but control is handed between
// fibers explicitly, via [Fiber.Switch] and [Fiber.Throw], such that exactly
// one fiber per [Thread] is running at any instant. A fiber only suspends when
// it switches away; there is no preemption.
//
// # Threads
//
// A thread is an execution context rooted at an ordinary goroutine. The first
// call to [Current], from a goroutine that is not itself a fiber, creates the
// root fiber of a new thread, for that goroutine. Fibers created with [New]
// belong to the thread of their creator, and may only switch to fibers of the
// same thread.
//
// Root fibers are retained for the lifetime of the process, keyed by
// goroutine. Use [Lookup] where creating one is undesirable, e.g. to test
// whether the calling goroutine belongs to a given thread.
//
// # Parents
//
// Every fiber except a root has a parent. When a fiber's function returns (or
// panics), the fiber is dead, and control passes to its nearest live
// ancestor, whose pending switch returns the result. Parent links may be
// changed with [Fiber.SetParent], which refuses to create cycles.
package fiber
