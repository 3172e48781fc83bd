// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"container/heap"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-fiberhub/fault"
	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

// Loop is a single-threaded event loop, see the package docs.
type Loop struct { // betteralign:ignore
	// Prevent copying
	_ [0]func()

	logger         *logiface.Logger[logiface.Event]
	errorHandler   ErrorHandler
	maxPollTimeout time.Duration

	state fastState

	poller fastPoller

	// wake-up mechanism
	wakeFd      int
	wakeFdWrite int
	wakeBuf     [8]byte
	wakePending atomic.Bool
	stopFlag    atomic.Bool

	// guards handles, asyncs, closing, and fdsClosed
	mu        sync.Mutex
	handles   []*handle
	asyncs    []*Async
	closing   []*handle
	fdsClosed bool

	// loop goroutine only
	now      time.Time
	timers   timerHeap
	timerSeq uint64
	idles    []*Idle
	prepares []*Prepare
	pollErr  error

	id uint64
}

var loopIDCounter atomic.Uint64

// New creates a new loop. The loop must be closed, to release its file
// descriptors.
func New(opts ...Option) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	wakeFd, wakeFdWrite, err := createWakeFd()
	if err != nil {
		return nil, err
	}

	loop := &Loop{
		logger:         cfg.logger,
		errorHandler:   cfg.errorHandler,
		maxPollTimeout: cfg.maxPollTimeout,
		wakeFd:         wakeFd,
		wakeFdWrite:    wakeFdWrite,
		now:            time.Now(),
		id:             loopIDCounter.Add(1),
	}

	if err := loop.poller.Init(); err != nil {
		closeWakeFd(wakeFd, wakeFdWrite)
		return nil, err
	}

	if err := loop.poller.RegisterFD(wakeFd, EventRead, func(IOEvents) {
		loop.drainWakeFd()
	}); err != nil {
		_ = loop.poller.Close()
		closeWakeFd(wakeFd, wakeFdWrite)
		return nil, err
	}

	return loop, nil
}

// ID returns a process-unique identifier for the loop.
func (l *Loop) ID() uint64 { return l.id }

// State returns the current state of the loop.
func (l *Loop) State() LoopState { return l.state.Load() }

// Now returns the loop's cached time, updated at the start of each turn.
func (l *Loop) Now() time.Time { return l.now }

// UpdateTime refreshes the cached time returned by Now.
func (l *Loop) UpdateTime() { l.now = time.Now() }

// Stop causes Run to return, after the current turn. If Run is not in
// progress, the next call to Run will return without blocking. Safe to call
// from any goroutine.
func (l *Loop) Stop() {
	l.stopFlag.Store(true)
	if l.state.Load() == StateSleeping {
		l.wake()
	}
}

// Alive indicates if there are active, referenced handles, or handles
// pending finalization.
func (l *Loop) Alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.closing) != 0 {
		return true
	}
	for _, h := range l.handles {
		if h.keepsAlive() {
			return true
		}
	}
	return false
}

// Walk calls fn for every handle that has not been finalized, including
// those that are closing, in creation order.
func (l *Loop) Walk(fn func(h Handle)) {
	l.mu.Lock()
	handles := make([]Handle, 0, len(l.handles))
	for _, h := range l.handles {
		if !h.internal {
			handles = append(handles, h.owner)
		}
	}
	l.mu.Unlock()
	for _, h := range handles {
		fn(h)
	}
}

// Run executes turns until the loop is no longer alive, or Stop is called.
// It returns a non-nil error only if the loop could not be run, or polling
// failed.
func (l *Loop) Run() error {
	if !l.state.TryTransition(StateAwake, StateRunning) {
		if l.state.Load() == StateClosed {
			return ErrLoopClosed
		}
		return ErrLoopRunning
	}
	defer l.state.TryTransition(StateRunning, StateAwake)
	defer l.stopFlag.Store(false)

	l.logger.Debug().Uint64(`loop`, l.id).Log(`reactor: run started`)
	defer l.logger.Debug().Uint64(`loop`, l.id).Log(`reactor: run stopped`)

	l.UpdateTime()
	for !l.stopFlag.Load() && l.Alive() {
		l.UpdateTime()
		l.runTimers()
		l.runIdles()
		l.runPrepares()
		if err := l.poll(); err != nil {
			return err
		}
		l.runClosing()
	}

	return nil
}

// Close closes every handle, finalizes them, then releases the loop's file
// descriptors. It fails with ErrLoopRunning if Run is in progress.
func (l *Loop) Close() error {
	for !l.state.TryTransition(StateAwake, StateClosed) {
		switch l.state.Load() {
		case StateClosed:
			return ErrLoopClosed
		case StateRunning, StateSleeping:
			return ErrLoopRunning
		}
	}

	l.mu.Lock()
	handles := slices.Clone(l.handles)
	l.mu.Unlock()
	for _, h := range handles {
		h.Close()
	}
	l.runClosing()

	l.closeFDs()

	return nil
}

func (l *Loop) register(h *handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fdsClosed || l.state.Load() == StateClosed {
		return ErrLoopClosed
	}
	l.handles = append(l.handles, h)
	return nil
}

func (l *Loop) unregister(h *handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := slices.Index(l.handles, h); i >= 0 {
		l.handles = slices.Delete(l.handles, i, i+1)
	}
}

func (l *Loop) scheduleClose(h *handle) {
	l.mu.Lock()
	l.closing = append(l.closing, h)
	l.mu.Unlock()
	if l.state.Load() == StateSleeping {
		l.wake()
	}
}

func (l *Loop) runClosing() {
	for {
		l.mu.Lock()
		closing := l.closing
		l.closing = nil
		l.mu.Unlock()
		if len(closing) == 0 {
			return
		}
		for _, h := range closing {
			h.finalize()
		}
	}
}

func (l *Loop) runTimers() {
	limit := l.timerSeq
	for len(l.timers) != 0 {
		t := l.timers[0]
		if t.due.After(l.now) || t.seq >= limit {
			break
		}
		heap.Pop(&l.timers)
		t.active.Store(false)
		if t.repeat > 0 {
			l.scheduleTimer(t, t.repeat)
		}
		l.invoke(func() error { return t.cb(t) })
	}
}

func (l *Loop) runIdles() {
	for _, h := range slices.Clone(l.idles) {
		if h.Active() {
			l.invoke(func() error { return h.cb(h) })
		}
	}
}

func (l *Loop) runPrepares() {
	for _, h := range slices.Clone(l.prepares) {
		if h.Active() {
			l.invoke(func() error { return h.cb(h) })
		}
	}
}

func (l *Loop) poll() error {
	timeout := l.pollTimeout()

	if !l.state.TryTransition(StateRunning, StateSleeping) {
		return fmt.Errorf("reactor: unexpected state: %s", l.state.Load())
	}
	// stop or close may have raced the transition
	if timeout != 0 && (l.stopFlag.Load() || l.hasClosing()) {
		timeout = 0
	}
	n, err := l.poller.Wait(timeout)
	l.state.TryTransition(StateSleeping, StateRunning)
	if err != nil {
		l.logger.Crit().Err(err).Uint64(`loop`, l.id).Log(`reactor: poll failed`)
		return fmt.Errorf("reactor: poll: %w", err)
	}

	l.UpdateTime()
	l.poller.Dispatch(n)
	l.runAsyncs()

	return nil
}

// pollTimeout returns the poll timeout in milliseconds, or -1 for none. It
// is 0 if the loop is no longer alive, as the last active handle may have
// been stopped earlier in the turn.
func (l *Loop) pollTimeout() int {
	if l.stopFlag.Load() || !l.Alive() || l.hasClosing() {
		return 0
	}
	for _, h := range l.idles {
		if h.Active() {
			return 0
		}
	}

	var (
		delay time.Duration
		ok    bool
	)
	if len(l.timers) != 0 {
		delay, ok = time.Until(l.timers[0].due), true
		if delay < 0 {
			delay = 0
		}
	}
	if l.maxPollTimeout > 0 && (!ok || delay > l.maxPollTimeout) {
		delay, ok = l.maxPollTimeout, true
	}
	if !ok {
		return -1
	}

	// ceiling rounding, so that timers are due once poll returns
	return int((delay + time.Millisecond - 1) / time.Millisecond)
}

func (l *Loop) hasClosing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.closing) != 0
}

func (l *Loop) runAsyncs() {
	l.mu.Lock()
	asyncs := slices.Clone(l.asyncs)
	l.mu.Unlock()
	for _, a := range asyncs {
		if a.Closing() || !a.pending.Swap(false) {
			continue
		}
		l.invoke(func() error { return a.cb(a) })
	}
}

// invoke calls fn, passing any error or recovered panic to the error
// handler.
func (l *Loop) invoke(fn func() error) {
	if err := call(fn); err != nil {
		l.handleError(err)
	}
}

func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.Recovered(r)
		}
	}()
	return fn()
}

func (l *Loop) handleError(err error) {
	if l.errorHandler != nil {
		l.errorHandler.HandleError(err)
		return
	}
	l.logger.Err().Err(err).Uint64(`loop`, l.id).Log(`reactor: callback failed`)
}

// wake interrupts poll. Safe to call from any goroutine.
func (l *Loop) wake() {
	if !l.wakePending.CompareAndSwap(false, true) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fdsClosed {
		return
	}
	if _, err := unix.Write(l.wakeFdWrite, wakeValue[:]); err != nil && err != unix.EAGAIN {
		l.logger.Err().Err(err).Uint64(`loop`, l.id).Log(`reactor: wake failed`)
	}
}

func (l *Loop) drainWakeFd() {
	l.wakePending.Store(false)
	for {
		if _, err := unix.Read(l.wakeFd, l.wakeBuf[:]); err != nil {
			break
		}
	}
}

func (l *Loop) closeFDs() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fdsClosed {
		return
	}
	l.fdsClosed = true
	_ = l.poller.Close()
	closeWakeFd(l.wakeFd, l.wakeFdWrite)
}

// wakeValue is a valid eventfd increment, and an arbitrary pipe payload.
var wakeValue = [8]byte{1}

func closeWakeFd(fd, fdWrite int) {
	_ = unix.Close(fd)
	if fdWrite != fd {
		_ = unix.Close(fdWrite)
	}
}
