// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package threadpool

import (
	"runtime"

	"github.com/joeycumines/logiface"
)

type (
	// Option configures a Pool instance.
	Option interface {
		applyPool(*poolOptions)
	}

	poolOptions struct {
		logger  *logiface.Logger[logiface.Event]
		workers int
	}

	optionImpl struct {
		applyPoolFunc func(*poolOptions)
	}
)

func (o *optionImpl) applyPool(opts *poolOptions) {
	o.applyPoolFunc(opts)
}

// WithWorkers limits the number of concurrent calls. Defaults to
// runtime.GOMAXPROCS(0), if n is not positive.
func WithWorkers(n int) Option {
	return &optionImpl{func(opts *poolOptions) {
		opts.workers = n
	}}
}

// WithLogger configures the structured logger. Defaults to none.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *poolOptions) {
		opts.logger = logger
	}}
}

func resolvePoolOptions(opts []Option) *poolOptions {
	cfg := &poolOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyPool(cfg)
		}
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	return cfg
}
