// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package fault classifies errors that escape cooperative callbacks.
//
// Every error carries its [Kind] from the point where it was created, and
// consumers read it back with [KindOf]. The kind decides whether a failure is
// reported, and whether it tears down the scheduler that observed it.
package fault

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Kind is a closed enumeration of error kinds.
type Kind uint8

const (
	// Other is any ordinary failure. It is reported, then swallowed.
	Other Kind = iota
	// CooperativeExit is an intentional cancellation, e.g. a killed fiber.
	// It is neither reported nor escalated.
	CooperativeExit
	// OrderlyExit is a request for the process (or scheduler) to stop. It is
	// not reported, but it is escalated.
	OrderlyExit
	// SystemFatal is an interrupt, forced exit, or unrecoverable fault. It is
	// reported, then escalated.
	SystemFatal
)

// Well-known errors.
var (
	// ErrExit is thrown into a fiber to make it unwind, see fiber.Fiber.Kill.
	ErrExit = New(CooperativeExit, errors.New("fault: fiber exit"))

	// ErrProcessExit requests an orderly stop.
	ErrProcessExit = New(OrderlyExit, errors.New("fault: process exit"))

	// ErrInterrupt models a keyboard interrupt (SIGINT).
	ErrInterrupt = New(SystemFatal, errors.New("fault: interrupt"))

	// ErrTerminated models a forced termination (SIGTERM).
	ErrTerminated = New(SystemFatal, errors.New("fault: terminated"))
)

type (
	// Error attaches a Kind to an underlying error.
	Error struct {
		Err  error
		Kind Kind
	}

	// PanicError wraps a recovered panic value.
	PanicError struct {
		Value any
		Stack []byte
	}

	kinded interface {
		FaultKind() Kind
	}
)

// New returns err tagged with kind. A nil err yields nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf formats an error (supporting %w) and tags it with kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind carried by err, or Other if it carries none.
func KindOf(err error) Kind {
	var k kinded
	if err != nil && errors.As(err, &k) {
		return k.FaultKind()
	}
	return Other
}

// Recovered converts a recovered panic value into an error, capturing the
// current stack. It must be called from the deferred function that called
// recover.
func Recovered(value any) error {
	return &PanicError{Value: value, Stack: debug.Stack()}
}

// Reported indicates if errors of this kind should produce diagnostics.
func (x Kind) Reported() bool {
	return x == Other || x == SystemFatal
}

// Escalated indicates if errors of this kind must be re-raised into the
// logical parent of the scheduler that observed them.
func (x Kind) Escalated() bool {
	return x == OrderlyExit || x == SystemFatal
}

func (x Kind) String() string {
	switch x {
	case Other:
		return "other"
	case CooperativeExit:
		return "cooperative-exit"
	case OrderlyExit:
		return "orderly-exit"
	case SystemFatal:
		return "system-fatal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(x))
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// FaultKind returns e.Kind.
func (e *Error) FaultKind() Kind { return e.Kind }

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("fault: panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error, so that a panic with a
// kinded error keeps its kind.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
