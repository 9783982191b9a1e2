package testutil

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
)

// ContainerBuilder provides a fluent interface for building test containers
type ContainerBuilder struct {
	t       *testing.T
	opts    []ioc.Option
	items   []any
	modules []*ioc.Module
}

// NewContainerBuilder creates a new ContainerBuilder
func NewContainerBuilder(t *testing.T) *ContainerBuilder {
	return &ContainerBuilder{t: t}
}

// WithOption adds a container option
func (b *ContainerBuilder) WithOption(opts ...ioc.Option) *ContainerBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// WithType registers classes in the root injector
func (b *ContainerBuilder) WithType(types ...reflect.Type) *ContainerBuilder {
	for _, t := range types {
		b.items = append(b.items, t)
	}
	return b
}

// WithProvider registers provider specs in the root injector
func (b *ContainerBuilder) WithProvider(specs ...ioc.ProviderSpec) *ContainerBuilder {
	for _, spec := range specs {
		b.items = append(b.items, spec)
	}
	return b
}

// WithModule registers modules after the other items
func (b *ContainerBuilder) WithModule(modules ...*ioc.Module) *ContainerBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// Build creates the container and closes it when the test ends
func (b *ContainerBuilder) Build() *ioc.Container {
	b.t.Helper()

	c := NewContainer(b.t, b.opts...)
	require.NoError(b.t, c.Register(b.items...))

	if len(b.modules) > 0 {
		_, err := c.Use(b.modules...)
		require.NoError(b.t, err)
	}

	return c
}

// NewContainer creates a container and closes it when the test ends
func NewContainer(t *testing.T, opts ...ioc.Option) *ioc.Container {
	t.Helper()

	c, err := ioc.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
