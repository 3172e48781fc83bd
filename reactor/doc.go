// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package reactor implements a single-threaded, libuv-style event loop.
//
// A [Loop] drives handles: timers ([Timer]), cross-goroutine wakeups
// ([Async]), per-turn hooks ([Prepare] and [Idle]), OS signals ([Signal]),
// and file descriptor readiness ([Poll]). [Loop.Run] blocks, executing turns,
// until no active, referenced handles remain, or [Loop.Stop] is called.
//
// Each turn runs, in order: expired timers, idle handles, prepare handles, a
// poll for I/O (which also observes async sends), then the finalization of
// closed handles. The poll blocks only when there is nothing else to do, for
// at most the time until the next timer is due.
//
// Excepting [NewAsync], [Async.Send], and [Loop.Stop], handles and the loop
// must be used from one goroutine at a time, typically the one calling
// [Loop.Run]. Callbacks may return an error, which is passed, along with any
// recovered panic, to the loop's [ErrorHandler].
//
// The loop is implemented using epoll (Linux) or kqueue (Darwin), with an
// eventfd or self-pipe, respectively, used for wakeups.
package reactor
