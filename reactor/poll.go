// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

const (
	// initial capacity of the fd index
	initialFDs = 1024
	// maximum fd value supported
	maxFDLimit = 100000000
)

// IOEvents represents the type of I/O events to monitor.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// Poll watches a file descriptor for readiness. The descriptor is not owned
// by the handle, and must remain open until the handle is stopped or closed.
type Poll struct {
	handle
	cb         func(p *Poll, events IOEvents) error
	fd         int
	events     IOEvents
	registered bool
}

// NewPoll creates a stopped poll handle for fd.
func NewPoll(loop *Loop, fd int) (*Poll, error) {
	if fd < 0 || fd >= maxFDLimit {
		return nil, ErrFDOutOfRange
	}
	p := &Poll{fd: fd}
	p.loop = loop
	p.owner = p
	p.onStop = p.Stop
	if err := loop.register(&p.handle); err != nil {
		return nil, err
	}
	return p, nil
}

// FD returns the watched file descriptor.
func (p *Poll) FD() int { return p.fd }

// Start starts (or updates) watching for the given events. EventError and
// EventHangup are always reported, and need not be requested.
func (p *Poll) Start(events IOEvents, cb func(p *Poll, events IOEvents) error) error {
	if cb == nil {
		return ErrNilCallback
	}
	if p.Closing() {
		return ErrHandleClosing
	}
	p.cb = cb
	events &= EventRead | EventWrite
	if p.registered {
		if err := p.loop.poller.ModifyFD(p.fd, events); err != nil {
			return err
		}
	} else {
		if err := p.loop.poller.RegisterFD(p.fd, events, p.dispatch); err != nil {
			return err
		}
		p.registered = true
	}
	p.events = events
	p.active.Store(true)
	return nil
}

// Stop stops watching the file descriptor.
func (p *Poll) Stop() {
	p.active.Store(false)
	if p.registered {
		p.registered = false
		if err := p.loop.poller.UnregisterFD(p.fd); err != nil {
			p.loop.logger.Warning().Err(err).Int(`fd`, p.fd).Log(`reactor: failed to unregister fd`)
		}
	}
}

func (p *Poll) dispatch(events IOEvents) {
	if !p.Active() {
		return
	}
	p.loop.invoke(func() error { return p.cb(p, events) })
}
