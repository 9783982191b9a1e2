package ioc

import (
	"reflect"
	"sync"
	"time"

	"github.com/junioryono/ioc/event"
)

// Container is the root injector. It additionally owns the annotation
// handler registry, the class metadata store and the index of registered
// classes. Containers are independent: a class registered in one container
// is unknown to every other container.
type Container struct {
	*Injector

	actions  *Actions
	reflects *ReflectStore
	config   Config
	logger   event.Logger
	clock    func() time.Time

	regMu      sync.RWMutex
	registered map[reflect.Type]*Injector
}

// New creates a container.
//
// Example:
//
//	c, err := ioc.New(ioc.WithLogger(&event.ConsoleLogger{W: os.Stderr}))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
func New(opts ...Option) (*Container, error) {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt.applyOption(&o)
		}
	}

	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		actions:    o.actions,
		reflects:   NewReflectStore(),
		config:     o.config,
		logger:     o.logger,
		clock:      o.clock,
		registered: make(map[reflect.Type]*Injector),
	}

	if c.actions == nil {
		c.actions = NewActions()
	}

	if c.clock == nil {
		c.clock = time.Now
	}

	if c.logger == nil {
		logger, err := o.config.newLogger()
		if err != nil {
			return nil, err
		}
		c.logger = logger
	}

	c.Injector = newInjector(c, nil)

	c.actions.mu.RLock()
	hasResolver := c.actions.resolve != nil
	c.actions.mu.RUnlock()
	if !hasResolver {
		c.actions.setResolver(func(token Token) (any, error) {
			return c.Injector.Resolve(Request{Token: token, Regify: true, Required: true})
		})
	}

	registerBuiltins(c.actions)

	return c, nil
}

// Actions returns the annotation handler registry.
func (c *Container) Actions() *Actions {
	return c.actions
}

// Reflects returns the class metadata store.
func (c *Container) Reflects() *ReflectStore {
	return c.reflects
}

// Config returns the container configuration.
func (c *Container) Config() Config {
	return c.config
}

// Logger returns the event logger.
func (c *Container) Logger() event.Logger {
	return c.logger
}

// IsRegistered reports whether the design pipeline ran for class in this
// container.
func (c *Container) IsRegistered(class Token) bool {
	t, ok := KeyOf(class).Class()
	return ok && c.registeredIn(t) != nil
}

// RegisteredIn returns the injector that owns the registration of class.
func (c *Container) RegisteredIn(class Token) (*Injector, bool) {
	t, ok := KeyOf(class).Class()
	if !ok {
		return nil, false
	}
	inj := c.registeredIn(t)
	return inj, inj != nil
}

func (c *Container) registeredIn(t reflect.Type) *Injector {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	return c.registered[t]
}

// markRegistered records inj as the owner of t. It reports false when t was
// already registered.
func (c *Container) markRegistered(t reflect.Type, inj *Injector) bool {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if _, exists := c.registered[t]; exists {
		return false
	}
	c.registered[t] = inj

	if r, ok := c.reflects.Get(t); ok {
		r.attach(inj)
	}
	return true
}

func (c *Container) unmarkRegistered(t reflect.Type, inj *Injector) {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if c.registered[t] != inj {
		return
	}
	delete(c.registered, t)

	if r, ok := c.reflects.Get(t); ok {
		r.detach(inj)
	}
}

// forget drops every registration owned by a closed injector.
func (c *Container) forget(inj *Injector) {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	for t, owner := range c.registered {
		if owner != inj {
			continue
		}
		delete(c.registered, t)
		if r, ok := c.reflects.Get(t); ok {
			r.detach(inj)
		}
	}
}

func (c *Container) now() time.Time {
	return c.clock()
}

// registerBuiltins registers the handlers of the built-in annotations once
// per registry.
func registerBuiltins(a *Actions) {
	a.mu.Lock()
	if a.builtins {
		a.mu.Unlock()
		return
	}
	a.builtins = true
	a.mu.Unlock()

	a.Register(AnnotationInject, StageDesign, PhaseProperty, Handler(designInjectProperty))
	a.Register(AnnotationConstructor, StageDesign, PhaseMethod, Handler(designConstructor))
	a.Register(AnnotationInject, StageRuntime, PhaseProperty, Handler(injectProperty))

	a.Register(ResolveChain, StageResolve, PhaseResolve,
		Handler(resolveFromProviders),
		Handler(resolveFromPrivate),
		Handler(resolveFromRefs),
		Handler(resolveFromInjector),
		Handler(resolveFromParents),
	)
}
