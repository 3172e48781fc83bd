// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"errors"
	"os"
	"syscall"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-fiberhub/fault"
	"github.com/joeycumines/go-fiberhub/fiber"
	"github.com/joeycumines/go-fiberhub/reactor"
	"github.com/joeycumines/logiface"
)

type (
	// ErrorPolicy receives every error escaping a callback run by the hub,
	// along with its kind. It is called on the runner, before any
	// escalation.
	ErrorPolicy interface {
		HandleError(h *Hub, kind fault.Kind, err error)
	}

	// ErrorPolicyFunc implements ErrorPolicy.
	ErrorPolicyFunc func(h *Hub, kind fault.Kind, err error)

	// LogPolicy is the default ErrorPolicy. It logs errors of reported
	// kinds, at the error level, including the stack of recovered panics.
	LogPolicy struct {
		// Logger may be nil, to disable logging.
		Logger *logiface.Logger[logiface.Event]
		// Limiter, if non-nil, rate limits diagnostics, per error message.
		Limiter *catrate.Limiter
	}
)

var (
	_ ErrorPolicy = ErrorPolicyFunc(nil)
	_ ErrorPolicy = (*LogPolicy)(nil)
)

func (f ErrorPolicyFunc) HandleError(h *Hub, kind fault.Kind, err error) { f(h, kind, err) }

func (x *LogPolicy) HandleError(h *Hub, kind fault.Kind, err error) {
	if !kind.Reported() {
		return
	}
	if _, ok := x.Limiter.Allow(err.Error()); !ok {
		return
	}
	b := x.Logger.Err()
	if !b.Enabled() {
		return
	}
	b = b.Err(err).
		Str(`kind`, kind.String()).
		Uint64(`hub`, h.ID())
	var p *fault.PanicError
	if errors.As(err, &p) {
		b = b.Str(`stack`, string(p.Stack))
	}
	b.Log(`hub: callback failed`)
}

// handleError is the reactor's error handler, also used for errors the hub
// observes directly.
func (h *Hub) handleError(err error) {
	if err == nil {
		return
	}
	kind := fault.KindOf(err)
	h.policy.HandleError(h, kind, err)
	if kind.Escalated() && !h.runner.Exiting() {
		h.escalate(err)
	}
	h.checkExit()
}

// escalate throws err into the runner's nearest live ancestor, immediately,
// if called from the runner, or otherwise on the next tick.
func (h *Hub) escalate(err error) {
	h.escalations.Add(1)
	throw := func() error {
		parent := h.runner.Parent()
		for parent != nil && parent.Dead() {
			parent = parent.Parent()
		}
		if parent == nil {
			parent = h.thread.Root()
		}
		_, err := parent.Throw(err)
		return err
	}
	if fiber.Lookup() == h.runner {
		if err := throw(); err != nil && !errors.Is(err, fault.ErrExit) {
			h.logger.Err().Err(err).Uint64(`hub`, h.id).Log(`hub: runner resumed with error`)
		}
		return
	}
	if err := h.nextTick(throw); err != nil {
		h.logger.Err().Err(err).Uint64(`hub`, h.id).Log(`hub: failed to defer escalation`)
	}
}

func (h *Hub) onSignal(_ *reactor.Signal, sig os.Signal) error {
	return signalError(sig)
}

func signalError(sig os.Signal) error {
	switch sig {
	case os.Interrupt:
		return fault.ErrInterrupt
	case syscall.SIGTERM:
		return fault.ErrTerminated
	default:
		return fault.Errorf(fault.SystemFatal, "hub: received signal: %s", sig)
	}
}
