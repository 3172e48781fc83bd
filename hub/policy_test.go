// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hub

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-fiberhub/fault"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelError),
	).Logger()
}

func TestLogPolicy_HandleError(t *testing.T) {
	var buf bytes.Buffer
	policy := &LogPolicy{
		Logger:  newBufferLogger(&buf),
		Limiter: catrate.NewLimiter(map[time.Duration]int{time.Minute: 2}),
	}
	h := &Hub{id: 7}

	errBoom := errors.New(`boom`)
	for range 3 {
		policy.HandleError(h, fault.Other, errBoom)
	}
	policy.HandleError(h, fault.CooperativeExit, fault.ErrExit)
	policy.HandleError(h, fault.OrderlyExit, fault.ErrProcessExit)
	policy.HandleError(h, fault.SystemFatal, fault.ErrInterrupt)
	policy.HandleError(h, fault.Other, fault.Recovered(`oops`))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.Contains(t, line, `"msg":"hub: callback failed"`)
	}
	assert.Contains(t, lines[0], `"err":"boom"`)
	assert.Contains(t, lines[0], `"kind":"other"`)
	assert.Contains(t, lines[1], `"err":"boom"`)
	assert.Contains(t, lines[2], `"kind":"system-fatal"`)
	assert.Contains(t, lines[3], `"err":"fault: panic: oops"`)
	assert.Contains(t, lines[3], `"stack":`)
	assert.NotContains(t, lines[0], `"stack":`)
}

func TestLogPolicy_HandleError_disabled(t *testing.T) {
	h := &Hub{id: 1}
	(&LogPolicy{}).HandleError(h, fault.Other, errors.New(`ignored`))
	var buf bytes.Buffer
	(&LogPolicy{Logger: newBufferLogger(&buf)}).HandleError(h, fault.Other, errors.New(`not limited`))
	require.Contains(t, buf.String(), `"err":"not limited"`)
}

func TestHub_defaultPolicy(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHub(t,
		WithLogger(newBufferLogger(&buf)),
		WithErrorRateLimits(map[time.Duration]int{time.Minute: 1}),
	)
	for range 3 {
		_, err := h.CallLater(0, func() { panic(`repeated`) })
		require.NoError(t, err)
	}
	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.Equal(t, 1, strings.Count(buf.String(), `"err":"fault: panic: repeated"`))
}

func TestHub_defaultPolicy_unlimited(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHub(t,
		WithLogger(newBufferLogger(&buf)),
		WithErrorRateLimits(nil),
	)
	for range 3 {
		_, err := h.CallLater(0, func() { panic(`repeated`) })
		require.NoError(t, err)
	}
	require.NoError(t, joinWithTimeout(t, h, 5*time.Second))
	require.Equal(t, 3, strings.Count(buf.String(), `"err":"fault: panic: repeated"`))
}

func TestSignalError(t *testing.T) {
	for _, tc := range [...]struct {
		Name string
		Sig  os.Signal
		Err  error
		Kind fault.Kind
	}{
		{`interrupt`, os.Interrupt, fault.ErrInterrupt, fault.SystemFatal},
		{`terminated`, syscall.SIGTERM, fault.ErrTerminated, fault.SystemFatal},
		{`other`, syscall.SIGUSR2, nil, fault.SystemFatal},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			err := signalError(tc.Sig)
			require.Error(t, err)
			if tc.Err != nil {
				require.ErrorIs(t, err, tc.Err)
			}
			require.Equal(t, tc.Kind, fault.KindOf(err))
		})
	}
}

func TestHub_WithSignals(t *testing.T) {
	policy, kinds, _ := recordPolicy()
	h := newTestHub(t, WithErrorPolicy(policy), WithSignals(syscall.SIGUSR1))

	// the signal handle doesn't keep the hub alive
	_, err := h.KeepAlive()
	require.NoError(t, err)

	_, err = h.CallLater(0, func() {
		assert.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
	})
	require.NoError(t, err)

	err = joinWithTimeout(t, h, 5*time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), `user defined signal 1`)
	require.Equal(t, []fault.Kind{fault.SystemFatal}, *kinds)
	require.Equal(t, uint64(1), h.Stats().Escalations)
}
