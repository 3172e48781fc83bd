// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-fiberhub/fault"
)

const (
	statusNew int32 = iota
	statusActive
	statusSuspended
	statusDead
)

type (
	// Func is the body of a fiber. It receives the value passed by the first
	// switch into the fiber, and its results are passed to the nearest live
	// ancestor, once it returns.
	Func func(v any) (any, error)

	// Fiber is a cooperatively scheduled unit of execution.
	//
	// Except where noted, methods must be called from a fiber of the same
	// thread. The parent link and switch-out hook are owned by the thread, and
	// are not synchronized.
	Fiber struct {
		fn        Func
		thread    *Thread
		parent    *Fiber
		switchOut func()
		resume    chan message
		id        uint64
		status    atomic.Int32
		exiting   atomic.Bool
	}

	message struct {
		value any
		err   error
	}
)

func newFiber(t *Thread, parent *Fiber, fn Func) *Fiber {
	return &Fiber{
		fn:     fn,
		thread: t,
		parent: parent,
		resume: make(chan message, 1),
		id:     fiberIDs.Add(1),
	}
}

// New creates a fiber that will run fn, once first switched to. Its parent,
// and thread, are those of Current. A panic will occur if fn is nil.
func New(fn Func) *Fiber {
	if fn == nil {
		panic(`fiber: nil func`)
	}
	parent := Current()
	return newFiber(parent.thread, parent, fn)
}

// ID returns a process-unique identifier. Safe to call from any goroutine.
func (x *Fiber) ID() uint64 { return x.id }

// Thread returns the thread the fiber belongs to. Safe to call from any
// goroutine.
func (x *Fiber) Thread() *Thread { return x.thread }

// Dead indicates the fiber has finished, or was killed before it started.
// Safe to call from any goroutine.
func (x *Fiber) Dead() bool { return x.status.Load() == statusDead }

// Started indicates the fiber has been switched to at least once. Root
// fibers are always started. Safe to call from any goroutine.
func (x *Fiber) Started() bool { return x.status.Load() != statusNew }

// Exiting indicates fault.ErrExit has been thrown into the fiber, e.g. by
// Kill, and it has not yet finished unwinding. Safe to call from any
// goroutine.
func (x *Fiber) Exiting() bool { return x.exiting.Load() && !x.Dead() }

// Parent returns the parent link, which is nil only for root fibers.
func (x *Fiber) Parent() *Fiber { return x.parent }

// SetParent replaces the parent link, failing with ErrCycle if x would
// become its own ancestor.
func (x *Fiber) SetParent(parent *Fiber) error {
	if parent == nil {
		return ErrNilParent
	}
	if parent.thread != x.thread {
		return ErrCrossThread
	}
	for p := parent; p != nil; p = p.parent {
		if p == x {
			return ErrCycle
		}
	}
	x.parent = parent
	return nil
}

// HasAncestor indicates if fiber appears in the parent chain of x.
func (x *Fiber) HasAncestor(fiber *Fiber) bool {
	for p := x.parent; p != nil; p = p.parent {
		if p == fiber {
			return true
		}
	}
	return false
}

// SetSwitchOut installs a hook that cooperative schedulers call before x
// suspends itself. A nil fn removes it.
func (x *Fiber) SetSwitchOut(fn func()) { x.switchOut = fn }

// SwitchOut returns the hook installed by SetSwitchOut, or nil.
func (x *Fiber) SwitchOut() func() { return x.switchOut }

// Switch suspends the calling fiber and resumes x, which receives v, either
// as the argument to its Func (if it hadn't started), or as the result of its
// own pending Switch.
//
// Switch returns once control is transferred back to the caller, returning
// the value passed, or the error thrown, by that transfer.
func (x *Fiber) Switch(v any) (any, error) {
	return x.transfer(message{value: v})
}

// Throw is like Switch, but x resumes with err instead of a value, i.e. its
// pending Switch returns err. An unstarted fiber dies immediately, passing
// err to its parent. A nil err is replaced with fault.ErrExit.
func (x *Fiber) Throw(err error) (any, error) {
	if err == nil {
		err = fault.ErrExit
	}
	return x.transfer(message{err: err})
}

// Kill unwinds x, by throwing fault.ErrExit into it, after making the caller
// its parent (so that control returns once x dies). Killing an unstarted
// fiber marks it dead without running it. Killing a dead fiber is a no-op.
//
// The error returned is the error x exited with, if it was not
// fault.ErrExit.
func (x *Fiber) Kill() error {
	if x.status.CompareAndSwap(statusNew, statusDead) {
		x.fn = nil
		return nil
	}
	if x.Dead() {
		return nil
	}
	current := Current()
	if current == x {
		return ErrKillCurrent
	}
	if current.thread != x.thread {
		return ErrCrossThread
	}
	_ = x.SetParent(current) // a cycle leaves the existing link in place
	if _, err := x.Throw(fault.ErrExit); err != nil && !errors.Is(err, fault.ErrExit) {
		return err
	}
	return nil
}

func (x *Fiber) String() string {
	return fmt.Sprintf("fiber(%d)", x.id)
}

func (x *Fiber) transfer(m message) (any, error) {
	current := Current()
	if current.thread != x.thread {
		return nil, ErrCrossThread
	}
	if current == x {
		return m.value, m.err
	}
	if x.Dead() {
		return nil, ErrDead
	}
	current.status.Store(statusSuspended)
	x.deliver(m)
	in := <-current.resume
	return in.value, in.err
}

// deliver resumes x (starting it if necessary), the caller must suspend
// itself immediately afterwards.
func (x *Fiber) deliver(m message) {
	if m.err != nil && errors.Is(m.err, fault.ErrExit) {
		x.exiting.Store(true)
	}
	if x.status.CompareAndSwap(statusNew, statusActive) {
		go x.run(m)
		return
	}
	x.status.Store(statusActive)
	x.resume <- m
}

func (x *Fiber) run(m message) {
	gid := goroutineID()
	registry.Store(gid, x)

	var (
		out       message
		completed bool
	)

	defer func() {
		if !completed {
			out = message{err: errGoexit}
		}
		registry.Delete(gid)
		x.finish(out)
	}()

	if m.err != nil {
		out.err = m.err
	} else {
		out.value, out.err = x.call(m.value)
	}

	if errors.Is(out.err, fault.ErrExit) {
		out = message{}
	}

	completed = true
}

func (x *Fiber) call(v any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fault.Recovered(r)
		}
	}()
	return x.fn(v)
}

// finish marks x dead and passes control to its nearest live ancestor.
func (x *Fiber) finish(out message) {
	x.status.Store(statusDead)
	x.fn = nil
	next := x.parent
	for next != nil && next.Dead() {
		next = next.parent
	}
	if next == nil {
		next = x.thread.root
	}
	next.deliver(out)
}
