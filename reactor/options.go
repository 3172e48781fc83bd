// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
)

type (
	// Option configures a Loop instance.
	Option interface {
		applyLoop(*loopOptions) error
	}

	// ErrorHandler receives every error returned by, or panic recovered from,
	// a callback. It is called synchronously, on the goroutine running the
	// loop.
	ErrorHandler interface {
		HandleError(err error)
	}

	// ErrorHandlerFunc implements ErrorHandler.
	ErrorHandlerFunc func(err error)

	loopOptions struct {
		logger         *logiface.Logger[logiface.Event]
		errorHandler   ErrorHandler
		maxPollTimeout time.Duration
	}

	optionImpl struct {
		applyLoopFunc func(*loopOptions) error
	}
)

var _ ErrorHandler = ErrorHandlerFunc(nil)

func (f ErrorHandlerFunc) HandleError(err error) { f(err) }

func (o *optionImpl) applyLoop(opts *loopOptions) error {
	return o.applyLoopFunc(opts)
}

// WithLogger configures the structured logger, used for diagnostics, and
// for callback errors, if no ErrorHandler is configured. A nil logger
// disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithErrorHandler configures the handler for callback errors.
func WithErrorHandler(handler ErrorHandler) Option {
	return &optionImpl{func(opts *loopOptions) error {
		opts.errorHandler = handler
		return nil
	}}
}

// WithMaxPollTimeout caps how long a single poll may block. Zero (the
// default) means no cap.
func WithMaxPollTimeout(d time.Duration) Option {
	return &optionImpl{func(opts *loopOptions) error {
		if d < 0 {
			return fmt.Errorf("reactor: invalid max poll timeout: %s", d)
		}
		opts.maxPollTimeout = d
		return nil
	}}
}

func resolveLoopOptions(opts []Option) (*loopOptions, error) {
	cfg := &loopOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
