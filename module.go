package ioc

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/junioryono/ioc/event"
	"github.com/junioryono/ioc/internal/graph"
)

// Module groups class types and provider specs registered together.
type Module struct {
	Name    string
	Imports []*Module

	// Types holds class types (reflect.Type) and ProviderSpec values.
	Types []any
}

// NewModule creates a module. Each item is an imported *Module, a class type
// or a ProviderSpec.
//
// Example:
//
//	var DatabaseModule = ioc.NewModule("database",
//	    ioc.TypeOf[Connection](),
//	    ioc.TypeOf[UserRepository](),
//	)
//
//	var AppModule = ioc.NewModule("app",
//	    DatabaseModule,
//	    ioc.Value("Config", cfg),
//	    ioc.TypeOf[UserService](),
//	)
func NewModule(name string, items ...any) *Module {
	m := &Module{Name: name}
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case *Module:
			m.Imports = append(m.Imports, v)
		default:
			m.Types = append(m.Types, v)
		}
	}
	return m
}

// ModuleLoader loads a module, for example from a plugin or remote source.
type ModuleLoader func(ctx context.Context) (*Module, error)

// Use registers the types of modules and their imports in the root injector.
// Imports are registered before the modules that import them. Within the
// whole set, classes are registered dependencies first; classes that form a
// cycle keep declaration order. Classes already registered are skipped.
//
// Use returns the classes it registered. Failures of individual classes do not
// stop the remaining registrations; they are combined into the returned
// error.
func (c *Container) Use(modules ...*Module) ([]reflect.Type, error) {
	flat := flattenModules(modules)

	var (
		errs     error
		classes  []reflect.Type
		owners   = make(map[reflect.Type]*Module)
		failures = make(map[*Module]error)
	)

	for _, m := range flat {
		for _, item := range m.Types {
			switch v := item.(type) {
			case ProviderSpec:
				if err := c.Register(v); err != nil {
					failures[m] = multierr.Append(failures[m], err)
				}

			case reflect.Type:
				class, ok := KeyOf(v).Class()
				if !ok {
					failures[m] = multierr.Append(failures[m],
						RegistrationError{Type: v, Operation: "register", Cause: ErrNotAClass})
					continue
				}
				if _, seen := owners[class]; seen {
					continue
				}
				owners[class] = m
				classes = append(classes, class)

			default:
				failures[m] = multierr.Append(failures[m], RegistrationError{
					Key:       KeyOf(item),
					Operation: "register",
					Cause:     fmt.Errorf("%w: unsupported module item %T", ErrInvalidProvider, item),
				})
			}
		}
	}

	registered := make(map[*Module][]reflect.Type)
	var result []reflect.Type

	for _, class := range c.registrationOrder(classes) {
		if c.IsRegistered(class) {
			continue
		}

		m := owners[class]
		if err := c.registerType(class, registerOptions{}); err != nil {
			failures[m] = multierr.Append(failures[m], err)
			continue
		}

		registered[m] = append(registered[m], class)
		result = append(result, class)
	}

	for _, m := range flat {
		names := make([]string, 0, len(registered[m]))
		for _, t := range registered[m] {
			names = append(names, formatType(t))
		}

		err := failures[m]
		c.logger.LogEvent(&event.ModuleLoaded{Name: m.Name, TypeNames: names, Err: err})
		if err != nil {
			errs = multierr.Append(errs, ModuleError{Module: m.Name, Cause: err})
		}
	}

	return result, errs
}

// Load runs loaders concurrently, then registers the loaded modules in loader
// order. Nothing is registered when a loader fails.
func (c *Container) Load(ctx context.Context, loaders ...ModuleLoader) ([]reflect.Type, error) {
	modules := make([]*Module, len(loaders))

	g, gctx := errgroup.WithContext(ctx)
	for i, load := range loaders {
		i, load := i, load
		if load == nil {
			continue
		}
		g.Go(func() error {
			m, err := load(gctx)
			if err != nil {
				return ModuleError{Module: fmt.Sprintf("loader #%d", i), Cause: err}
			}
			modules[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := modules[:0]
	for _, m := range modules {
		if m != nil {
			loaded = append(loaded, m)
		}
	}

	return c.Use(loaded...)
}

// flattenModules returns modules with their imports first, each module once.
func flattenModules(modules []*Module) []*Module {
	var (
		result []*Module
		seen   = make(map[*Module]bool)
		visit  func(m *Module)
	)

	visit = func(m *Module) {
		if m == nil || seen[m] {
			return
		}
		seen[m] = true
		for _, imp := range m.Imports {
			visit(imp)
		}
		result = append(result, m)
	}

	for _, m := range modules {
		visit(m)
	}
	return result
}

// registrationOrder sorts classes so that the classes a class injects come
// first. It falls back to declaration order when the classes form a cycle.
func (c *Container) registrationOrder(classes []reflect.Type) []reflect.Type {
	g := graph.NewDependencyGraph()
	for _, class := range classes {
		g.AddNode(class, c.dependenciesOf(class)...)
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		return classes
	}

	inSet := make(map[reflect.Type]bool, len(classes))
	for _, class := range classes {
		inSet[class] = true
	}

	result := make([]reflect.Type, 0, len(classes))
	for _, t := range sorted {
		if inSet[t] {
			result = append(result, t)
		}
	}
	return result
}

// dependenciesOf returns the classes class injects by type and the classes it
// extends.
func (c *Container) dependenciesOf(class reflect.Type) []reflect.Type {
	r, err := c.reflects.Create(class)
	if err != nil {
		return nil
	}

	var deps []reflect.Type
	add := func(key Key) {
		if t, ok := key.Class(); ok && t != class {
			deps = append(deps, t)
		}
	}

	for _, p := range r.Properties {
		if p.Injected {
			add(p.Key())
		}
	}

	if params, err := r.Params(); err == nil {
		for _, p := range params {
			add(p.Key())
		}
	}

	for _, base := range r.Extends {
		add(KeyOf(base))
	}

	return deps
}
