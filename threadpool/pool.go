// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package threadpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-fiberhub/fault"
	"github.com/joeycumines/go-fiberhub/fiber"
	"github.com/joeycumines/go-fiberhub/hub"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/semaphore"
)

type (
	// Pool runs blocking funcs on worker goroutines, see Pool.Run.
	// Instances must be initialized using the New factory.
	Pool struct {
		hub    *hub.Hub
		logger *logiface.Logger[logiface.Event]
		sem    *semaphore.Weighted
		ctx    context.Context
		cancel context.CancelFunc
		wg     sync.WaitGroup
		closed atomic.Bool
	}

	// Func is the work performed by Run. The context is canceled once the
	// pool is closed.
	Func func(ctx context.Context) (any, error)

	outcome struct {
		value any
		err   error
	}
)

// New creates a pool, delivering results to fibers scheduled by h.
func New(h *hub.Hub, opts ...Option) *Pool {
	cfg := resolvePoolOptions(opts)
	p := &Pool{
		hub:    h,
		logger: cfg.logger,
		sem:    semaphore.NewWeighted(int64(cfg.workers)),
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

// Run calls fn on a worker goroutine, suspending the calling fiber until it
// returns. It must be called from a fiber on the hub's thread, other than
// the runner. Panics are recovered, as a fault.PanicError.
//
// If the calling fiber is resumed early (e.g. it was killed), Run returns
// the error it was resumed with, and the result is discarded.
func (p *Pool) Run(fn Func) (any, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if p.closed.Load() {
		return nil, ErrClosed
	}

	current := fiber.Lookup()
	if current == nil || current.Thread() != p.hub.Fiber().Thread() {
		return nil, hub.ErrWrongThread
	}
	if current == p.hub.Fiber() {
		return nil, hub.ErrInvalidSwitch
	}

	// the pending work must keep the hub from finishing
	release, err := p.hub.KeepAlive()
	if err != nil {
		return nil, err
	}

	var abandoned atomic.Bool
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		result := p.call(fn)
		if err := p.hub.CallFromThread(func() {
			release()
			if abandoned.Load() {
				return
			}
			if err := p.hub.Resume(current, result); err != nil {
				p.logger.Err().Err(err).Log(`threadpool: failed to resume fiber`)
			}
		}); err != nil {
			release()
			p.logger.Warning().Err(err).Log(`threadpool: result discarded`)
		}
	}()

	v, err := p.hub.Switch()
	if err != nil {
		abandoned.Store(true)
		return nil, err
	}
	result, ok := v.(*outcome)
	if !ok {
		abandoned.Store(true)
		return nil, ErrUnexpectedResume
	}
	return result.value, result.err
}

// Close prevents further calls to Run, cancels the context passed to
// running funcs, then waits for the workers to exit. It must not be called
// from within a Func.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	p.cancel()
	p.wg.Wait()
	return nil
}

func (p *Pool) call(fn Func) (result *outcome) {
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		return &outcome{err: ErrClosed}
	}
	defer p.sem.Release(1)
	result = &outcome{}
	defer func() {
		if r := recover(); r != nil {
			result.value, result.err = nil, fault.Recovered(r)
		}
	}()
	result.value, result.err = fn(p.ctx)
	return result
}
