package ioc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/internal/testutil"
)

// runHandlers runs a resolved chain and returns the labels it recorded.
func runHandlers(t *testing.T, handlers []ioc.Handler) []string {
	t.Helper()

	ctx := &ioc.Context{}
	err := runChainForTest(ctx, handlers)
	require.NoError(t, err)

	v, _ := ctx.Get("trace")
	trace, _ := v.([]string)
	return trace
}

func runChainForTest(ctx *ioc.Context, handlers []ioc.Handler) error {
	var step func(i int) error
	step = func(i int) error {
		if i >= len(handlers) {
			return nil
		}
		return handlers[i](ctx, func() error { return step(i + 1) })
	}
	return step(0)
}

func trace(ctx *ioc.Context, label string) {
	v, _ := ctx.Get("trace")
	labels, _ := v.([]string)
	ctx.Set("trace", append(labels, label))
}

func handlerA(ctx *ioc.Context, next ioc.Next) error { trace(ctx, "a"); return next() }
func handlerB(ctx *ioc.Context, next ioc.Next) error { trace(ctx, "b"); return next() }
func handlerC(ctx *ioc.Context, next ioc.Next) error { trace(ctx, "c"); return next() }
func handlerD(ctx *ioc.Context, next ioc.Next) error { trace(ctx, "d"); return next() }

func handlerStop(ctx *ioc.Context, next ioc.Next) error {
	trace(ctx, "stop")
	return nil
}

type upperAction struct{}

func (upperAction) Execute(ctx *ioc.Context, next ioc.Next) error {
	trace(ctx, "action")
	return next()
}

type tracedClass struct{}

func init() {
	ioc.Declare[tracedClass](
		ioc.Custom("Traced", ioc.TargetClass, "", "payload"),
		ioc.Custom("Traced", ioc.TargetClass, "", "ignored duplicate"),
	)
}

func TestActions_Order(t *testing.T) {
	tests := []struct {
		name  string
		setup func(a *ioc.Actions)
		want  []string
	}{
		{
			name: "register appends",
			setup: func(a *ioc.Actions) {
				a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerA, handlerB)
				a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerC)
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "before anchor",
			setup: func(a *ioc.Actions) {
				a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerA, handlerB)
				a.RegisterBefore("X", ioc.StageRuntime, ioc.PhaseClass, handlerB, handlerC)
			},
			want: []string{"a", "c", "b"},
		},
		{
			name: "after anchor",
			setup: func(a *ioc.Actions) {
				a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerA, handlerB)
				a.RegisterAfter("X", ioc.StageRuntime, ioc.PhaseClass, handlerA, handlerC, handlerD)
			},
			want: []string{"a", "c", "d", "b"},
		},
		{
			name: "missing before anchor prepends",
			setup: func(a *ioc.Actions) {
				a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerA)
				a.RegisterBefore("X", ioc.StageRuntime, ioc.PhaseClass, handlerD, handlerB)
			},
			want: []string{"b", "a"},
		},
		{
			name: "missing after anchor appends",
			setup: func(a *ioc.Actions) {
				a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerA)
				a.RegisterAfter("X", ioc.StageRuntime, ioc.PhaseClass, handlerD, handlerB)
			},
			want: []string{"a", "b"},
		},
		{
			name: "handler ending the chain",
			setup: func(a *ioc.Actions) {
				a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerA, handlerStop, handlerB)
			},
			want: []string{"a", "stop"},
		},
		{
			name: "action value",
			setup: func(a *ioc.Actions) {
				a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerA, upperAction{})
			},
			want: []string{"a", "action"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ioc.NewActions()
			tt.setup(a)

			handlers, err := a.Handlers("X", ioc.StageRuntime, ioc.PhaseClass)
			require.NoError(t, err)
			assert.Equal(t, tt.want, runHandlers(t, handlers))
		})
	}
}

func TestActions_Partitions(t *testing.T) {
	a := ioc.NewActions()
	a.Register("X", ioc.StageDesign, ioc.PhaseClass, handlerA)
	a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerB)
	a.Register("X", ioc.StageRuntime, ioc.PhaseProperty, handlerC)

	assert.True(t, a.Has("X", ioc.StageDesign, ioc.PhaseClass))
	assert.False(t, a.Has("X", ioc.StageDesign, ioc.PhaseProperty))
	assert.False(t, a.Has("Y", ioc.StageDesign, ioc.PhaseClass))
	assert.Equal(t, 1, a.Len("X", ioc.StageRuntime, ioc.PhaseProperty))

	handlers, err := a.Handlers("Y", ioc.StageRuntime, ioc.PhaseClass)
	require.NoError(t, err)
	assert.Empty(t, handlers)

	handlers, err = a.Handlers("X", ioc.StageRuntime, ioc.PhaseClass)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, runHandlers(t, handlers))
}

func TestActions_MutationInvalidatesCache(t *testing.T) {
	a := ioc.NewActions()
	a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerA, handlerB)

	handlers, err := a.Handlers("X", ioc.StageRuntime, ioc.PhaseClass)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, runHandlers(t, handlers))

	assert.True(t, a.Unregister("X", ioc.StageRuntime, ioc.PhaseClass, handlerA))
	assert.False(t, a.Unregister("X", ioc.StageRuntime, ioc.PhaseClass, handlerA))

	handlers, err = a.Handlers("X", ioc.StageRuntime, ioc.PhaseClass)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, runHandlers(t, handlers))

	a.Register("X", ioc.StageRuntime, ioc.PhaseClass, handlerC)
	handlers, err = a.Handlers("X", ioc.StageRuntime, ioc.PhaseClass)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, runHandlers(t, handlers))
}

func TestActions_InvalidReferences(t *testing.T) {
	tests := []struct {
		name string
		ref  any
	}{
		{name: "nil", ref: nil},
		{name: "string", ref: "not a handler"},
		{name: "wrong signature", ref: func() {}},
		{name: "class token without container", ref: ioc.TypeOf[upperAction]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ioc.NewActions()
			a.Register("X", ioc.StageRuntime, ioc.PhaseClass, tt.ref)

			_, err := a.Handlers("X", ioc.StageRuntime, ioc.PhaseClass)
			require.Error(t, err)
			assert.ErrorIs(t, err, ioc.ErrInvalidHandler)
		})
	}
}

func TestActions_ClassTokenHandler(t *testing.T) {
	c := testutil.NewContainer(t)
	c.Actions().Register("Traced", ioc.StageDesign, ioc.PhaseClass, ioc.TypeOf[upperAction]())

	var seen []any
	c.Actions().Register("Traced", ioc.StageDesign, ioc.PhaseAfterClass, func(ctx *ioc.Context, next ioc.Next) error {
		seen = append(seen, ctx.Annotation.Metadata)
		trace(ctx, "after")
		v, _ := ctx.Get("trace")
		seen = append(seen, strings.Join(v.([]string), ","))
		return next()
	})

	require.NoError(t, c.RegisterType(ioc.TypeOf[tracedClass]()))

	assert.Equal(t, []any{"payload", "action,after"}, seen)
	assert.True(t, c.IsRegistered(ioc.TypeOf[upperAction]()))
}
