package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/scenemesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(log *[]string, entry string) HandlerFunc {
	return func(*core.Context) error {
		*log = append(*log, entry)
		return nil
	}
}

func TestScene_HandlersRunInRegistrationOrder(t *testing.T) {
	var log []string
	s := New("greet").
		OnEnter(record(&log, "enter-1")).
		OnEnter(record(&log, "enter-2")).
		OnLeave(record(&log, "leave-1")).
		OnMessage(record(&log, "msg-1")).
		OnEnter(record(&log, "enter-3"))

	ctx := core.NewContext(context.Background(), "u1")
	require.NoError(t, s.Enter(ctx))
	require.NoError(t, s.HandleMessage(ctx))
	require.NoError(t, s.Leave(ctx))

	assert.Equal(t, []string{"enter-1", "enter-2", "enter-3", "msg-1", "leave-1"}, log)
	assert.Equal(t, 3, s.Len(EventEnter))
	assert.Equal(t, "greet", s.Name())
}

func TestScene_RegistrationIsChainable(t *testing.T) {
	s := New("a")
	assert.Same(t, s, s.OnEnter(func(*core.Context) error { return nil }))
	assert.Same(t, s, s.On(EventMessage, HandlerFunc(func(*core.Context) error { return nil })))
}

func TestScene_FirstErrorAbortsChain(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	s := New("flaky").
		OnMessage(record(&log, "first")).
		OnMessage(func(*core.Context) error { return boom }).
		OnMessage(record(&log, "never"))

	err := s.HandleMessage(core.NewContext(context.Background(), "u1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var cbErr *CallbackError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, "flaky", cbErr.Scene)
	assert.Equal(t, EventMessage, cbErr.Event)
	assert.Equal(t, 1, cbErr.Index)
	assert.Contains(t, cbErr.Error(), `scene "flaky": message handler #1: boom`)
	assert.Equal(t, []string{"first"}, log)
}

func TestScene_NoHandlersIsNoop(t *testing.T) {
	s := New("empty")
	ctx := core.NewContext(context.Background(), "u1")
	assert.NoError(t, s.Enter(ctx))
	assert.NoError(t, s.Leave(ctx))
	assert.NoError(t, s.HandleMessage(ctx))
}

func TestScene_HandlersShareContextData(t *testing.T) {
	s := New("counter").
		OnMessage(func(ctx *core.Context) error { ctx.Set("n", 1); return nil }).
		OnMessage(func(ctx *core.Context) error {
			n, _ := ctx.Get("n")
			ctx.Set("n", n.(int)+1)
			return nil
		})

	ctx := core.NewContext(context.Background(), "u1")
	require.NoError(t, s.HandleMessage(ctx))
	assert.Equal(t, 2, ctx.SessionData["n"])
}

func TestScene_InvalidRegistrationPanics(t *testing.T) {
	assert.Panics(t, func() { New("a").On(Event("shutdown"), HandlerFunc(func(*core.Context) error { return nil })) })
	assert.Panics(t, func() { New("a").OnEnter(nil) })
	assert.Panics(t, func() { New("a").On(EventLeave, nil) })
}
