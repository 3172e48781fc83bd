// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fault

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	for _, tc := range [...]struct {
		name string
		err  error
		want Kind
	}{
		{`nil`, nil, Other},
		{`plain`, io.EOF, Other},
		{`exit`, ErrExit, CooperativeExit},
		{`process exit`, ErrProcessExit, OrderlyExit},
		{`interrupt`, ErrInterrupt, SystemFatal},
		{`wrapped`, fmt.Errorf(`outer: %w`, ErrTerminated), SystemFatal},
		{`errorf`, Errorf(SystemFatal, `boom %d`, 1), SystemFatal},
		{`panic with kinded error`, &PanicError{Value: ErrExit}, CooperativeExit},
		{`panic with string`, &PanicError{Value: `x`}, Other},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestKind_policy(t *testing.T) {
	assert.True(t, Other.Reported())
	assert.False(t, Other.Escalated())
	assert.False(t, CooperativeExit.Reported())
	assert.False(t, CooperativeExit.Escalated())
	assert.False(t, OrderlyExit.Reported())
	assert.True(t, OrderlyExit.Escalated())
	assert.True(t, SystemFatal.Reported())
	assert.True(t, SystemFatal.Escalated())
	assert.Equal(t, `kind(9)`, Kind(9).String())
}

func TestNew_nil(t *testing.T) {
	require.NoError(t, New(SystemFatal, nil))
}

func TestRecovered(t *testing.T) {
	err := func() (err error) {
		defer func() { err = Recovered(recover()) }()
		panic(io.ErrUnexpectedEOF)
	}()
	var pe *PanicError
	require.True(t, errors.As(err, &pe))
	assert.NotEmpty(t, pe.Stack)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, `fault: panic: unexpected EOF`, err.Error())
}
