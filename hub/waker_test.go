// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-fiberhub/fiber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_CallFromThread(t *testing.T) {
	h := newTestHub(t)
	release, err := h.KeepAlive()
	require.NoError(t, err)

	var (
		order    []int
		onRunner = true
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer release()
		for i := range 10 {
			assert.NoError(t, h.CallFromThread(func() {
				if fiber.Lookup() != h.Fiber() {
					onRunner = false
				}
				order = append(order, i)
			}))
		}
	}()

	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	<-done
	require.True(t, onRunner)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestHub_CallFromThread_keepsAlive(t *testing.T) {
	h := newTestHub(t)
	var n int
	require.NoError(t, h.CallFromThread(func() { n++ }))
	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.Equal(t, 1, n)
}

func TestHub_CallFromThread_nilFunc(t *testing.T) {
	h := newTestHub(t)
	require.ErrorIs(t, h.CallFromThread(nil), ErrNilFunc)
}

func TestHub_KeepAlive(t *testing.T) {
	h := newTestHub(t)
	release, err := h.KeepAlive()
	require.NoError(t, err)

	var released atomic.Bool
	go func() {
		time.Sleep(20 * time.Millisecond)
		released.Store(true)
		release()
		release()
	}()

	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.True(t, released.Load())
}

func TestWaker_Wake(t *testing.T) {
	h := newTestHub(t)
	waker := h.Waker()
	require.NotNil(t, waker)

	// the waker does not keep the hub alive
	require.NoError(t, waker.Wake())
	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.ErrorIs(t, waker.Wake(), ErrAlreadyStopped)
}
