// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

// Stats is a snapshot of the hub's bookkeeping.
type Stats struct {
	// Timers is the number of live timers, see CallLater.
	Timers int
	// Ticks is the number of queued NextTick callbacks.
	Ticks int
	// TickArmings is the number of times a tick flush was scheduled.
	TickArmings uint64
	// Escalations is the number of errors escalated to the runner's parent.
	Escalations uint64
}

// Stats returns a snapshot of the hub's bookkeeping. It must be called from
// the hub's thread.
func (h *Hub) Stats() Stats {
	s := Stats{
		Timers:      len(h.timers),
		TickArmings: h.tickArmings.Load(),
		Escalations: h.escalations.Load(),
	}
	if h.ticks != nil {
		s.Ticks = h.ticks.Length()
	}
	return s
}
