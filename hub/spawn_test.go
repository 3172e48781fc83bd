// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"testing"
	"time"

	"github.com/joeycumines/go-fiberhub/fiber"
	"github.com/stretchr/testify/require"
)

func TestHub_Spawn(t *testing.T) {
	h := newTestHub(t)
	var (
		events []string
		self   *fiber.Fiber
	)
	f, err := h.Spawn(func() error {
		self = fiber.Current()
		events = append(events, `spawned`)
		return nil
	})
	require.NoError(t, err)
	require.False(t, f.Started())
	require.Same(t, h.Fiber(), f.Parent())
	require.NoError(t, h.NextTick(func() { events = append(events, `tick`) }))

	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.Equal(t, []string{`spawned`, `tick`}, events)
	require.Same(t, f, self)
	require.True(t, f.Dead())
}

func TestHub_Spawn_nilFunc(t *testing.T) {
	h := newTestHub(t)
	_, err := h.Spawn(nil)
	require.ErrorIs(t, err, ErrNilFunc)
}

func TestHub_Sleep(t *testing.T) {
	h := newTestHub(t)
	var (
		events  []string
		elapsed time.Duration
		hooked  bool
	)
	for i, d := range [...]time.Duration{30 * time.Millisecond, 10 * time.Millisecond} {
		_, err := h.Spawn(func() error {
			if i == 0 {
				fiber.Current().SetSwitchOut(func() { hooked = true })
			}
			start := time.Now()
			if err := h.Sleep(d); err != nil {
				return err
			}
			if i == 0 {
				elapsed = time.Since(start)
			}
			events = append(events, d.String())
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.Equal(t, []string{`10ms`, `30ms`}, events)
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	require.True(t, hooked)
	require.Zero(t, h.Stats().Timers)
}

func TestHub_Sleep_fromParent(t *testing.T) {
	h := newTestHub(t)
	var fired bool
	_, err := h.CallLater(0, func() { fired = true })
	require.NoError(t, err)

	// starts the runner, without joining it
	require.NoError(t, h.Sleep(5*time.Millisecond))
	require.True(t, fired)
	require.True(t, h.Fiber().Started())
	require.False(t, h.Fiber().Dead())

	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.True(t, h.Fiber().Dead())
}

func TestHub_Sleep_fromRunner(t *testing.T) {
	h := newTestHub(t)
	var err error
	_, _ = h.CallLater(0, func() { err = h.Sleep(0) })
	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.ErrorIs(t, err, ErrInvalidSwitch)
}

func TestHub_Sleep_killed(t *testing.T) {
	h := newTestHub(t)
	var sleepErr error
	f, err := h.Spawn(func() error {
		sleepErr = h.Sleep(time.Hour)
		return sleepErr
	})
	require.NoError(t, err)
	_, err = h.CallLater(time.Millisecond, func() { _ = f.Kill() })
	require.NoError(t, err)

	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.Error(t, sleepErr)
	require.True(t, f.Dead())
	require.Zero(t, h.Stats().Timers)
}
