// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fiber

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/joeycumines/go-fiberhub/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiber_Switch_pingPong(t *testing.T) {
	root := Current()
	require.Same(t, root, root.Thread().Root())
	require.Nil(t, root.Parent())
	require.True(t, root.Started())

	f := New(func(v any) (any, error) {
		require.Same(t, root.Thread(), Current().Thread())
		x, err := root.Switch(v.(int) + 1)
		if err != nil {
			return nil, err
		}
		return x.(int) * 10, nil
	})
	require.Same(t, root, f.Parent())
	require.False(t, f.Started())

	v, err := f.Switch(1)
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.True(t, f.Started())
	require.False(t, f.Dead())

	v, err = f.Switch(5)
	require.NoError(t, err)
	require.Equal(t, 50, v)
	require.True(t, f.Dead())

	_, err = f.Switch(nil)
	require.ErrorIs(t, err, ErrDead)
}

func TestFiber_Switch_self(t *testing.T) {
	root := Current()
	v, err := root.Switch(`x`)
	require.NoError(t, err)
	require.Equal(t, `x`, v)
}

func TestFiber_Switch_crossThread(t *testing.T) {
	f := New(func(v any) (any, error) { return v, nil })
	errCh := make(chan error, 1)
	go func() {
		_, err := f.Switch(nil)
		errCh <- err
	}()
	require.ErrorIs(t, <-errCh, ErrCrossThread)
	require.False(t, f.Started())
	require.NoError(t, f.Kill())
}

func TestFiber_Throw_suspended(t *testing.T) {
	errBoom := errors.New(`boom`)
	root := Current()
	f := New(func(any) (any, error) {
		_, err := root.Switch(nil)
		return nil, fmt.Errorf(`wrapped: %w`, err)
	})
	_, err := f.Switch(nil)
	require.NoError(t, err)
	_, err = f.Throw(errBoom)
	require.ErrorIs(t, err, errBoom)
	require.True(t, f.Dead())
}

func TestFiber_Throw_unstarted(t *testing.T) {
	errBoom := errors.New(`boom`)
	var called bool
	f := New(func(any) (any, error) {
		called = true
		return nil, nil
	})
	_, err := f.Throw(errBoom)
	require.ErrorIs(t, err, errBoom)
	require.False(t, called)
	require.True(t, f.Dead())
}

func TestFiber_Kill(t *testing.T) {
	t.Run(`unstarted`, func(t *testing.T) {
		var called bool
		f := New(func(any) (any, error) {
			called = true
			return nil, nil
		})
		require.NoError(t, f.Kill())
		require.True(t, f.Dead())
		require.NoError(t, f.Kill())
		_, err := f.Switch(nil)
		require.ErrorIs(t, err, ErrDead)
		require.False(t, called)
	})

	t.Run(`suspended`, func(t *testing.T) {
		root := Current()
		var cleanedUp bool
		f := New(func(any) (any, error) {
			defer func() { cleanedUp = true }()
			_, err := root.Switch(nil)
			return nil, err
		})
		_, err := f.Switch(nil)
		require.NoError(t, err)
		require.NoError(t, f.Kill())
		require.True(t, cleanedUp)
		require.True(t, f.Dead())
	})

	t.Run(`exit error replaced`, func(t *testing.T) {
		errOther := errors.New(`other`)
		root := Current()
		f := New(func(any) (any, error) {
			if _, err := root.Switch(nil); !errors.Is(err, fault.ErrExit) {
				return nil, fmt.Errorf(`unexpected: %v`, err)
			}
			return nil, errOther
		})
		_, err := f.Switch(nil)
		require.NoError(t, err)
		require.ErrorIs(t, f.Kill(), errOther)
	})

	t.Run(`self`, func(t *testing.T) {
		var err error
		f := New(func(any) (any, error) {
			err = Current().Kill()
			return nil, nil
		})
		_, _ = f.Switch(nil)
		require.ErrorIs(t, err, ErrKillCurrent)
	})

	t.Run(`reparents to killer`, func(t *testing.T) {
		root := Current()
		var inner *Fiber
		outer := New(func(any) (any, error) {
			inner = New(func(any) (any, error) {
				_, err := root.Switch(nil)
				return nil, err
			})
			_, err := inner.Switch(nil)
			return nil, err
		})
		_, err := outer.Switch(nil)
		require.NoError(t, err)
		require.Same(t, outer, inner.Parent())
		require.NoError(t, inner.Kill())
		require.Same(t, root, inner.Parent())
		require.False(t, outer.Dead())
		require.NoError(t, outer.Kill())
	})
}

func TestFiber_panic(t *testing.T) {
	f := New(func(any) (any, error) { panic(`oops`) })
	_, err := f.Switch(nil)
	var p *fault.PanicError
	require.ErrorAs(t, err, &p)
	require.Equal(t, `oops`, p.Value)
	require.NotEmpty(t, p.Stack)
	require.True(t, f.Dead())
}

func TestFiber_goexit(t *testing.T) {
	f := New(func(any) (any, error) {
		runtime.Goexit()
		return nil, nil
	})
	_, err := f.Switch(nil)
	require.ErrorIs(t, err, errGoexit)
	require.True(t, f.Dead())
}

func TestFiber_finish_nearestLiveAncestor(t *testing.T) {
	root := Current()
	a := New(func(any) (any, error) { return `a`, nil })
	b := New(func(any) (any, error) { return `b`, nil })
	require.NoError(t, b.SetParent(a))
	require.True(t, b.HasAncestor(root))

	v, err := a.Switch(nil)
	require.NoError(t, err)
	require.Equal(t, `a`, v)

	v, err = b.Switch(nil)
	require.NoError(t, err)
	require.Equal(t, `b`, v)
}

func TestFiber_SetParent(t *testing.T) {
	root := Current()
	a := New(func(any) (any, error) { return nil, nil })
	b := New(func(any) (any, error) { return nil, nil })
	defer func() {
		assert.NoError(t, a.Kill())
		assert.NoError(t, b.Kill())
	}()

	require.NoError(t, a.SetParent(b))
	require.True(t, a.HasAncestor(b))
	require.True(t, a.HasAncestor(root))
	require.False(t, b.HasAncestor(a))

	require.ErrorIs(t, b.SetParent(a), ErrCycle)
	require.Same(t, root, b.Parent())
	require.ErrorIs(t, a.SetParent(a), ErrCycle)
	require.ErrorIs(t, a.SetParent(nil), ErrNilParent)

	other := make(chan *Fiber, 1)
	go func() { other <- Current() }()
	require.ErrorIs(t, a.SetParent(<-other), ErrCrossThread)
	require.Same(t, b, a.Parent())
}

func TestFiber_SwitchOut(t *testing.T) {
	f := New(func(any) (any, error) { return nil, nil })
	require.Nil(t, f.SwitchOut())
	var n int
	f.SetSwitchOut(func() { n++ })
	f.SwitchOut()()
	require.Equal(t, 1, n)
	f.SetSwitchOut(nil)
	require.Nil(t, f.SwitchOut())
}

func TestNew_nil(t *testing.T) {
	require.Panics(t, func() { New(nil) })
}

func TestCurrent_insideFiber(t *testing.T) {
	root := Current()
	var self *Fiber
	f := New(func(any) (any, error) {
		self = Current()
		return nil, nil
	})
	_, err := f.Switch(nil)
	require.NoError(t, err)
	require.Same(t, f, self)
	require.Same(t, root, Current())
	require.NotEqual(t, root.ID(), f.ID())
}

func TestFiber_Exiting(t *testing.T) {
	root := Current()
	var during bool
	var f *Fiber
	f = New(func(any) (any, error) {
		_, err := root.Switch(nil)
		during = f.Exiting()
		return nil, err
	})
	_, err := f.Switch(nil)
	require.NoError(t, err)
	require.False(t, f.Exiting())
	require.NoError(t, f.Kill())
	require.True(t, during)
	require.False(t, f.Exiting())
}
