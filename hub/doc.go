// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package hub implements a per-thread cooperative scheduler, coordinating
// fibers with a reactor.
//
// A [Hub] owns a [reactor.Loop], and the fiber that drives it (the runner).
// Application code runs in other fibers, of the same [fiber.Thread]. To wait
// for something, a fiber arranges to be resumed (e.g. via [Hub.CallLater]),
// then calls [Hub.Switch], which suspends it and resumes the runner. When the
// relevant reactor callback fires, on the runner, it switches back into the
// waiting fiber.
//
// At most one hub may be bound to each thread. It is created with [New], run
// by calling [Hub.Join] from the fiber that created it, and released with
// [Hub.Destroy].
//
// # Thread safety
//
// Excepting [Hub.CallFromThread], [Waker.Wake], [Timer.Cancel], and the
// release function returned by [Hub.KeepAlive], methods must be called from
// the hub's thread. Worker goroutines must re-enter the hub exclusively via
// [Hub.CallFromThread].
//
// # Errors
//
// Errors escaping callbacks (including recovered panics) are classified by
// [fault.KindOf], passed to the [ErrorPolicy], then either swallowed, or (for
// [fault.Kind.Escalated] kinds) thrown into the runner's parent fiber, which
// is normally blocked in [Hub.Join].
package hub
