// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/joeycumines/go-fiberhub/fault"
	"github.com/joeycumines/go-fiberhub/fiber"
	"github.com/joeycumines/go-fiberhub/reactor"
	"github.com/joeycumines/logiface"
)

// Hub is a per-thread scheduler, see the package docs.
type Hub struct {
	thread *fiber.Thread
	runner *fiber.Fiber
	loop   *reactor.Loop
	logger *logiface.Logger[logiface.Event]
	policy ErrorPolicy

	// live timers, see CallLater
	timers map[*Timer]struct{}
	waker  *Waker

	// fibers suspended in Switch, killed by Destroy
	suspended map[*fiber.Fiber]struct{}

	signal  *reactor.Signal
	signals []os.Signal

	// next tick state, see NextTick
	tickPrepare *reactor.Prepare
	tickIdle    *reactor.Idle
	ticks       *queue.Queue

	id          uint64
	destroyed   atomic.Bool
	tickArmings atomic.Uint64
	escalations atomic.Uint64
}

// hubKey is the fiber.Thread value key for the bound hub.
type hubKey struct{}

var hubIDs atomic.Uint64

// New creates a hub, and binds it to the calling thread. The runner is
// not started until Join (or Switch) is called.
func New(opts ...Option) (*Hub, error) {
	cfg, err := resolveHubOptions(opts)
	if err != nil {
		return nil, err
	}

	current := fiber.Current()

	h := &Hub{
		thread:  current.Thread(),
		logger:  cfg.logger,
		policy:  cfg.policy,
		timers:    make(map[*Timer]struct{}),
		suspended: make(map[*fiber.Fiber]struct{}),
		signals:   cfg.signals,
		ticks:     queue.New(),
		id:        hubIDs.Add(1),
	}
	if h.policy == nil {
		h.policy = &LogPolicy{Logger: h.logger, Limiter: cfg.limiter}
	}

	if _, loaded := h.thread.LoadOrStore(hubKey{}, h); loaded {
		return nil, ErrAlreadyRunning
	}

	var success bool
	defer func() {
		if !success {
			h.thread.CompareAndDelete(hubKey{}, h)
			if h.loop != nil {
				_ = h.loop.Close()
			}
		}
	}()

	h.runner = fiber.New(h.run)

	if h.loop, err = reactor.New(
		reactor.WithLogger(h.logger),
		reactor.WithErrorHandler(reactor.ErrorHandlerFunc(h.handleError)),
		reactor.WithMaxPollTimeout(cfg.maxPollTimeout),
	); err != nil {
		return nil, fmt.Errorf("hub: failed to create reactor: %w", err)
	}

	if h.waker, err = newWaker(h.loop); err != nil {
		return nil, err
	}

	if h.tickPrepare, err = reactor.NewPrepare(h.loop); err != nil {
		return nil, err
	}
	if h.tickIdle, err = reactor.NewIdle(h.loop); err != nil {
		return nil, err
	}

	if len(h.signals) != 0 {
		if h.signal, err = reactor.NewSignal(h.loop); err != nil {
			return nil, err
		}
		h.signal.Unref()
	}

	success = true

	h.logger.Debug().Uint64(`hub`, h.id).Log(`hub: created`)

	return h, nil
}

// Current returns the hub bound to the calling thread.
func Current() (*Hub, error) {
	if f := fiber.Lookup(); f != nil {
		if h, ok := f.Thread().Value(hubKey{}).(*Hub); ok {
			return h, nil
		}
	}
	return nil, ErrNotRunning
}

// ID returns a process-unique identifier for the hub.
func (h *Hub) ID() uint64 { return h.id }

// Fiber returns the runner, i.e. the fiber that drives the reactor.
func (h *Hub) Fiber() *fiber.Fiber { return h.runner }

// Loop returns the reactor. It must only be used from the runner, e.g. to
// register handles that resume fibers.
func (h *Hub) Loop() *reactor.Loop { return h.loop }

// Destroy unbinds the hub from its thread, unwinds the runner (if it is
// suspended), closes every reactor handle, then releases the reactor.
// Fibers still suspended in Switch are then killed, unless they are
// ancestors of the caller.
//
// Destroy must be called from the hub's thread, but not from the runner,
// failing with ErrWrongThread or ErrWrongCaller respectively. The hub stays
// bound to its thread until destroyed, so once unbound, every call fails
// with ErrAlreadyDestroyed, while Current fails with ErrNotRunning.
func (h *Hub) Destroy() error {
	if h.destroyed.Load() {
		return ErrAlreadyDestroyed
	}

	current := fiber.Lookup()
	if current == nil || current.Thread() != h.thread {
		return ErrWrongThread
	}
	if current == h.runner {
		return ErrWrongCaller
	}

	if !h.destroyed.CompareAndSwap(false, true) {
		return ErrAlreadyDestroyed
	}
	h.thread.CompareAndDelete(hubKey{}, h)

	var errs []error
	if h.runner.Started() && !h.runner.Dead() {
		// the runner cleans up the loop as it unwinds, and must return to the
		// caller, which therefore cannot remain its descendant
		if current.HasAncestor(h.runner) {
			_ = current.SetParent(h.runner.Parent())
		}
		if err := h.runner.Kill(); err != nil {
			errs = append(errs, fmt.Errorf("hub: runner exited with error: %w", err))
		}
	} else {
		_ = h.runner.Kill()
		h.cleanupLoop()
	}

	if err := h.loop.Close(); err != nil {
		errs = append(errs, fmt.Errorf("hub: failed to close reactor: %w", err))
	}

	h.killSuspended(current)

	h.timers = nil
	h.suspended = nil
	h.waker = nil
	h.signal = nil
	h.tickPrepare = nil
	h.tickIdle = nil
	h.ticks = nil

	h.logger.Debug().Uint64(`hub`, h.id).Log(`hub: destroyed`)

	return errors.Join(errs...)
}

// Switch suspends the calling fiber, and resumes the runner. The switch-out
// hook of the calling fiber, if any, is called first. Unless it would create
// a cycle, or the runner is already an ancestor, the caller is reparented to
// the runner, such that control returns to the hub once the caller finishes.
//
// Switch returns once something switches back into the caller, e.g. a
// callback registered using CallLater.
func (h *Hub) Switch() (any, error) {
	if h.destroyed.Load() {
		return nil, ErrAlreadyDestroyed
	}

	current := fiber.Lookup()
	if current == nil || current.Thread() != h.thread {
		return nil, ErrWrongThread
	}
	if current == h.runner {
		return nil, ErrInvalidSwitch
	}
	if h.runner.Dead() {
		return nil, ErrAlreadyStopped
	}

	if fn := current.SwitchOut(); fn != nil {
		fn()
	}

	if !current.HasAncestor(h.runner) {
		_ = current.SetParent(h.runner) // cycles are ignored
	}

	h.suspended[current] = struct{}{}
	defer delete(h.suspended, current)

	return h.runner.Switch(nil)
}

// killSuspended unwinds the fibers left suspended in Switch, which would
// otherwise never be resumed.
func (h *Hub) killSuspended(current *fiber.Fiber) {
	for len(h.suspended) != 0 {
		var f *fiber.Fiber
		for f = range h.suspended {
			break
		}
		delete(h.suspended, f)
		if f.Dead() || current.HasAncestor(f) {
			continue
		}
		if err := f.Kill(); err != nil {
			h.logger.Debug().Err(err).Uint64(`hub`, h.id).Uint64(`fiber`, f.ID()).Log(`hub: suspended fiber exited with error`)
		}
	}
}

// Join starts (or resumes) the runner, returning once the reactor has no
// more work, or an escalated error is thrown into the caller. It may only
// be called by the runner's parent, normally the fiber that created the hub.
func (h *Hub) Join() error {
	if h.destroyed.Load() {
		return ErrAlreadyDestroyed
	}
	if fiber.Lookup() != h.runner.Parent() {
		return ErrWrongCaller
	}
	if h.runner.Dead() {
		return ErrAlreadyStopped
	}
	_, err := h.runner.Switch(nil)
	return err
}

// run is the runner's body.
func (h *Hub) run(any) (any, error) {
	if h.signal != nil {
		if err := h.signal.Start(h.onSignal, h.signals...); err != nil {
			h.logger.Err().Err(err).Uint64(`hub`, h.id).Log(`hub: failed to start signal handler`)
		}
	}
	defer h.cleanupLoop()
	return nil, h.loop.Run()
}

// cleanupLoop closes every handle, then runs the loop, which cannot block,
// to finalize them.
func (h *Hub) cleanupLoop() {
	h.loop.Walk(func(handle reactor.Handle) {
		handle.Close()
	})
	if err := h.loop.Run(); err != nil {
		h.logger.Err().Err(err).Uint64(`hub`, h.id).Log(`hub: failed to settle reactor`)
	}
	for t := range h.timers {
		t.discard()
	}
	clear(h.timers)
}

// checkOwner validates the hub may be used by the calling goroutine.
func (h *Hub) checkOwner() error {
	if h.destroyed.Load() {
		return ErrAlreadyDestroyed
	}
	if f := fiber.Lookup(); f == nil || f.Thread() != h.thread {
		return ErrWrongThread
	}
	if h.runner.Dead() {
		return ErrAlreadyStopped
	}
	return nil
}

// dispatch runs a callback on behalf of the runner, unless the runner is
// unwinding, in which case the loop is stopped instead.
func (h *Hub) dispatch(fn func() error) (err error) {
	if h.runner.Exiting() {
		h.loop.Stop()
		return nil
	}
	defer h.checkExit()
	defer func() {
		if r := recover(); r != nil {
			err = fault.Recovered(r)
		}
	}()
	return fn()
}

// checkExit stops the loop if the runner has been killed.
func (h *Hub) checkExit() {
	if h.runner.Exiting() {
		h.loop.Stop()
	}
}

// Resume switches into f, passing v, and must be called by the runner, i.e.
// from a reactor callback. Returns once f switches back, or finishes, in
// which case any error it returned is handled like any other callback error.
func (h *Hub) Resume(f *fiber.Fiber, v any) error {
	if fiber.Lookup() != h.runner {
		return ErrWrongCaller
	}
	if err := h.resume(f, v); err != nil {
		h.handleError(err)
	}
	return nil
}

// resume switches into f, from the runner. The error will be that returned
// by f, if it finished, or that thrown into the runner, if any.
func (h *Hub) resume(f *fiber.Fiber, v any) error {
	_, err := f.Switch(v)
	return err
}
