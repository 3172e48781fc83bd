// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

type (
	// Option configures a Hub instance.
	Option interface {
		applyHub(*hubOptions) error
	}

	hubOptions struct {
		logger         *logiface.Logger[logiface.Event]
		policy         ErrorPolicy
		limiter        *catrate.Limiter
		signals        []os.Signal
		maxPollTimeout time.Duration
		loggerSet      bool
		limiterSet     bool
	}

	optionImpl struct {
		applyHubFunc func(*hubOptions) error
	}
)

// DefaultErrorRateLimits are the rates at which LogPolicy reports repeated
// errors, per distinct error message, unless overridden using
// WithErrorRateLimits.
var DefaultErrorRateLimits = map[time.Duration]int{
	time.Second: 5,
	time.Minute: 60,
}

func (o *optionImpl) applyHub(opts *hubOptions) error {
	return o.applyHubFunc(opts)
}

// WithLogger configures the structured logger. Defaults to JSON lines,
// written to stderr, at the error level. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *hubOptions) error {
		opts.logger = logger
		opts.loggerSet = true
		return nil
	}}
}

// WithErrorPolicy replaces the default LogPolicy.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return &optionImpl{func(opts *hubOptions) error {
		opts.policy = policy
		return nil
	}}
}

// WithErrorRateLimits configures the rate limits applied by the default
// LogPolicy, see DefaultErrorRateLimits. Empty rates disable rate limiting.
func WithErrorRateLimits(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *hubOptions) (err error) {
		opts.limiterSet = true
		if len(rates) == 0 {
			opts.limiter = nil
			return nil
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("hub: invalid error rate limits: %v", r)
			}
		}()
		opts.limiter = catrate.NewLimiter(rates)
		return nil
	}}
}

// WithSignals enables escalation of the given OS signals, as errors raised
// by the runner. SIGINT maps to fault.ErrInterrupt, and SIGTERM to
// fault.ErrTerminated. The signal handle does not keep the hub alive.
func WithSignals(sigs ...os.Signal) Option {
	return &optionImpl{func(opts *hubOptions) error {
		opts.signals = append(opts.signals[:0:0], sigs...)
		return nil
	}}
}

// WithMaxPollTimeout caps how long the reactor may block, see
// reactor.WithMaxPollTimeout.
func WithMaxPollTimeout(d time.Duration) Option {
	return &optionImpl{func(opts *hubOptions) error {
		opts.maxPollTimeout = d
		return nil
	}}
}

func resolveHubOptions(opts []Option) (*hubOptions, error) {
	cfg := &hubOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyHub(cfg); err != nil {
			return nil, err
		}
	}
	if !cfg.loggerSet {
		cfg.logger = defaultLogger()
	}
	if !cfg.limiterSet {
		cfg.limiter = catrate.NewLimiter(DefaultErrorRateLimits)
	}
	return cfg, nil
}

func defaultLogger() *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(logiface.LevelError),
	).Logger()
}
