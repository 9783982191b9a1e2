package ioc

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/junioryono/ioc/event"
	"go.uber.org/multierr"
)

// Injector is a scoped registry of key to provider bindings with parent
// delegation. A child injector never owns its parent.
//
// Injectors are safe for concurrent use.
type Injector struct {
	id        string
	parent    *Injector
	container *Container

	mu      sync.RWMutex
	entries map[Key]ProviderEntry
	order   []Key

	// byType maps a concrete class to the keys bound to it.
	byType map[reflect.Type][]Key

	// instances caches singleton and TTL instances of classes bound here by
	// the key the class was registered under.
	instances map[Key]cachedInstance

	lifecycle *lifecycle
	closed    bool
}

type cachedInstance struct {
	value   any
	expires time.Time
}

func newInjector(c *Container, parent *Injector) *Injector {
	return &Injector{
		id:        uuid.NewString(),
		parent:    parent,
		container: c,
		entries:   make(map[Key]ProviderEntry),
		byType:    make(map[reflect.Type][]Key),
		instances: make(map[Key]cachedInstance),
		lifecycle: newLifecycle(),
	}
}

// ID returns the unique identifier of the injector.
func (inj *Injector) ID() string {
	return inj.id
}

// Parent returns the parent injector, or nil for the root.
func (inj *Injector) Parent() *Injector {
	return inj.parent
}

// Root returns the root injector of the container.
func (inj *Injector) Root() *Injector {
	root := inj
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// IsRoot reports whether the injector has no parent.
func (inj *Injector) IsRoot() bool {
	return inj.parent == nil
}

// Container returns the container that owns the injector.
func (inj *Injector) Container() *Container {
	return inj.container
}

// NewChild creates an injector that delegates to inj for missing keys.
func (inj *Injector) NewChild() *Injector {
	return newInjector(inj.container, inj)
}

// Has reports whether token is bound in the injector or any ancestor.
func (inj *Injector) Has(token Token, alias ...string) bool {
	_, _, ok := inj.lookup(KeyOf(token, alias...))
	return ok
}

// HasOwn reports whether token is bound in the injector itself.
func (inj *Injector) HasOwn(token Token, alias ...string) bool {
	_, ok := inj.entry(KeyOf(token, alias...))
	return ok
}

// Len returns the number of bindings owned by the injector.
func (inj *Injector) Len() int {
	inj.mu.RLock()
	defer inj.mu.RUnlock()
	return len(inj.entries)
}

// Set binds token to factory unless token is already bound in the
// injector. It reports whether the binding was added.
func (inj *Injector) Set(token Token, factory Factory, concrete reflect.Type) bool {
	return inj.bind(KeyOf(token), ProviderEntry{Factory: factory, Type: concrete}, false)
}

// BindProvider binds token to factory, replacing any existing binding.
func (inj *Injector) BindProvider(token Token, factory Factory, concrete reflect.Type) {
	inj.bind(KeyOf(token), ProviderEntry{Factory: factory, Type: concrete}, true)
}

// RegisterValue binds token to v, replacing any existing binding.
func (inj *Injector) RegisterValue(token Token, v any, alias ...string) {
	entry := ProviderEntry{Value: v, HasValue: true}
	if v != nil {
		entry.Type = normalizeType(reflect.TypeOf(v))
	}
	inj.bind(KeyOf(token, alias...), entry, true)
}

// Register adds classes and provider specs. Items already bound in the
// injector are skipped. Each item is a class type or a ProviderSpec.
//
// Example:
//
//	err := inj.Register(
//	    ioc.TypeOf[UserService](),
//	    ioc.Value("Config", cfg),
//	    ioc.UseClass(ioc.TypeOf[Store](), ioc.TypeOf[SQLStore]()),
//	)
func (inj *Injector) Register(providers ...any) error {
	for _, p := range providers {
		switch v := p.(type) {
		case reflect.Type:
			class, ok := KeyOf(v).Class()
			if !ok {
				return RegistrationError{Type: v, Operation: "register", Cause: ErrNotAClass}
			}
			if inj.HasOwn(class) {
				continue
			}
			if err := inj.registerType(class, registerOptions{}); err != nil {
				return err
			}

		case ProviderSpec:
			if err := inj.registerSpec(v, false); err != nil {
				return err
			}

		case []ProviderSpec:
			for _, spec := range v {
				if err := inj.registerSpec(spec, false); err != nil {
					return err
				}
			}

		default:
			return RegistrationError{
				Key:       KeyOf(p),
				Operation: "register",
				Cause:     fmt.Errorf("%w: unsupported provider %T", ErrInvalidProvider, p),
			}
		}
	}

	return nil
}

func (inj *Injector) registerSpec(spec ProviderSpec, replace bool) error {
	key := spec.Key()
	if !replace && inj.HasOwn(key) {
		return nil
	}

	entry, err := inj.compile(spec)
	if err != nil {
		return RegistrationError{Key: key, Operation: "register", Cause: err}
	}

	inj.bind(key, entry, replace)
	return nil
}

// RegisterType registers class, running the design pipeline the first time
// the container sees it, then binds the class in this injector.
//
// Example:
//
//	err := c.RegisterType(ioc.TypeOf[Dog](), ioc.ProvideAs(ioc.TypeOf[Animal]()))
func (inj *Injector) RegisterType(class Token, opts ...RegisterOption) error {
	key := KeyOf(class)
	t, ok := key.Class()
	if !ok {
		return RegistrationError{Type: key.Type(), Key: key, Operation: "register", Cause: ErrNotAClass}
	}

	var o registerOptions
	for _, opt := range opts {
		if opt != nil {
			opt.applyRegisterOption(&o)
		}
	}

	return inj.registerType(t, o)
}

func (inj *Injector) registerType(t reflect.Type, o registerOptions) error {
	if inj.isClosed() {
		return RegistrationError{Type: t, Operation: "register", Cause: ErrInjectorClosed}
	}

	c := inj.container
	r, err := c.reflects.Create(t)
	if err != nil {
		c.logger.LogEvent(&event.RegisterFailed{TypeName: formatType(t), Err: err})
		return err
	}

	if !c.markRegistered(t, inj) {
		return inj.bindClass(r, o)
	}

	if err := c.design(inj, r, o); err != nil {
		c.unmarkRegistered(t, inj)
		c.logger.LogEvent(&event.RegisterFailed{TypeName: formatType(t), Err: err})
		return RegistrationError{Type: t, Operation: "register", Cause: err}
	}

	return nil
}

// bindClass binds the class under its own key, its provided tokens, its
// reference tokens and its private providers.
func (inj *Injector) bindClass(r *TypeReflect, o registerOptions) error {
	t := r.Type
	key := KeyOf(t, o.alias)
	entry := ProviderEntry{Factory: inj.classFactory(key, t, o.singleton), Type: t}

	inj.bind(key, entry, true)
	for _, token := range o.provideAs {
		inj.bind(KeyOf(token, o.alias), entry, true)
	}
	for _, p := range r.Provides {
		inj.bind(KeyOf(p.Token, p.Alias), entry, true)
	}

	for _, ref := range r.Refs {
		inj.bind(RefKey(KeyOf(ref.Provide, ref.Alias), ref.Target), entry, true)
	}

	for _, spec := range r.ClassProviders {
		private, err := inj.compile(spec)
		if err != nil {
			return RegistrationError{Type: t, Key: spec.Key(), Operation: "bind private provider", Cause: err}
		}
		inj.bind(RefKey(spec.Key(), t), private, true)
	}

	return nil
}

// classFactory returns the factory of class t registered in inj under key.
// Cached instances live in inj under key, so every token bound to one
// registration shares its instance.
func (inj *Injector) classFactory(key Key, t reflect.Type, singleton *bool) Factory {
	return func(ctx *Context) (any, error) {
		return inj.instantiate(ctx, key, t, singleton)
	}
}

func (inj *Injector) bind(key Key, entry ProviderEntry, replace bool) bool {
	inj.mu.Lock()
	if inj.closed {
		inj.mu.Unlock()
		return false
	}

	old, exists := inj.entries[key]
	if exists && !replace {
		inj.mu.Unlock()
		return false
	}

	if exists {
		inj.removeTypeIndex(key, old.Type)
	} else {
		inj.order = append(inj.order, key)
	}

	inj.entries[key] = entry
	if entry.Type != nil {
		inj.byType[entry.Type] = append(inj.byType[entry.Type], key)
	}
	inj.mu.Unlock()

	inj.container.logger.LogEvent(&event.Bound{
		Key:        key.String(),
		TypeName:   typeName(entry.Type),
		InjectorID: inj.id,
	})
	return true
}

// Unregister removes the binding of token from this injector only. When
// token is a class whose registration this injector owns, the class's
// reference bindings and cached instance are dropped too and the class may be
// registered again.
func (inj *Injector) Unregister(token Token, alias ...string) bool {
	key := KeyOf(token, alias...)

	inj.mu.Lock()
	entry, ok := inj.entries[key]
	if !ok {
		inj.mu.Unlock()
		return false
	}
	inj.remove(key, entry)
	delete(inj.instances, key)

	var removed []Key
	class, isClass := key.Class()
	owner := isClass && key.Alias() == "" && !key.IsRef() && inj.container.registeredIn(class) == inj
	if owner {
		for _, k := range append([]Key(nil), inj.order...) {
			e := inj.entries[k]
			if k.Target() == class || (k.IsRef() && e.Type == class) {
				inj.remove(k, e)
				delete(inj.instances, k)
				removed = append(removed, k)
			}
		}
	}
	inj.mu.Unlock()

	if owner {
		inj.container.unmarkRegistered(class, inj)
	}

	inj.container.logger.LogEvent(&event.Unregistered{Key: key.String(), InjectorID: inj.id})
	for _, k := range removed {
		inj.container.logger.LogEvent(&event.Unregistered{Key: k.String(), InjectorID: inj.id})
	}
	return true
}

// remove deletes key. Callers hold mu.
func (inj *Injector) remove(key Key, entry ProviderEntry) {
	delete(inj.entries, key)
	inj.removeTypeIndex(key, entry.Type)
	for i, k := range inj.order {
		if k == key {
			inj.order = append(inj.order[:i:i], inj.order[i+1:]...)
			break
		}
	}
}

// removeTypeIndex drops key from the type index. Callers hold mu.
func (inj *Injector) removeTypeIndex(key Key, t reflect.Type) {
	if t == nil {
		return
	}
	keys := inj.byType[t]
	for i, k := range keys {
		if k == key {
			keys = append(keys[:i:i], keys[i+1:]...)
			break
		}
	}
	if len(keys) == 0 {
		delete(inj.byType, t)
	} else {
		inj.byType[t] = keys
	}
}

// KeysOf returns the keys bound to the concrete class in this injector.
func (inj *Injector) KeysOf(class Token) []Key {
	t := KeyOf(class).Type()

	inj.mu.RLock()
	defer inj.mu.RUnlock()
	return append([]Key(nil), inj.byType[t]...)
}

// Iterate calls fn for every binding of the injector in binding order, then
// for its ancestors when includeParent is set. Iteration stops when fn
// returns false; Iterate reports whether it ran to completion.
func (inj *Injector) Iterate(fn func(key Key, entry ProviderEntry) bool, includeParent bool) bool {
	for cur := inj; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		keys := append([]Key(nil), cur.order...)
		cur.mu.RUnlock()

		for _, k := range keys {
			entry, ok := cur.entry(k)
			if !ok {
				continue
			}
			if !fn(k, entry) {
				return false
			}
		}

		if !includeParent {
			break
		}
	}

	return true
}

// entry returns the live binding of key in this injector, evicting it when
// it has expired.
func (inj *Injector) entry(key Key) (ProviderEntry, bool) {
	inj.mu.RLock()
	entry, ok := inj.entries[key]
	inj.mu.RUnlock()

	if !ok {
		return ProviderEntry{}, false
	}

	if entry.expired(inj.container.now()) {
		inj.mu.Lock()
		if current, ok := inj.entries[key]; ok && current.expired(inj.container.now()) {
			inj.remove(key, current)
		}
		inj.mu.Unlock()
		return ProviderEntry{}, false
	}

	return entry, true
}

// lookup finds key in the injector or its ancestors.
func (inj *Injector) lookup(key Key) (ProviderEntry, *Injector, bool) {
	for cur := inj; cur != nil; cur = cur.parent {
		if entry, ok := cur.entry(key); ok {
			return entry, cur, true
		}
	}
	return ProviderEntry{}, nil, false
}

func (inj *Injector) cached(key Key) (any, bool) {
	inj.mu.RLock()
	c, ok := inj.instances[key]
	inj.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !c.expires.IsZero() && !inj.container.now().Before(c.expires) {
		inj.mu.Lock()
		if current, ok := inj.instances[key]; ok && current.expires == c.expires {
			delete(inj.instances, key)
		}
		inj.mu.Unlock()
		return nil, false
	}

	return c.value, true
}

// cache stores v under key unless a live instance is already cached there, and
// returns the instance that won.
func (inj *Injector) cache(key Key, v any, ttl time.Duration) any {
	now := inj.container.now()
	c := cachedInstance{value: v}
	if ttl > 0 {
		c.expires = now.Add(ttl)
	}

	inj.mu.Lock()
	defer inj.mu.Unlock()
	if existing, ok := inj.instances[key]; ok && (existing.expires.IsZero() || now.Before(existing.expires)) {
		return existing.value
	}
	inj.instances[key] = c
	return v
}

func (inj *Injector) reportDestroy(instance any, hook string, err error, runtime time.Duration) {
	inj.container.logger.LogEvent(&event.HookExecuted{
		TypeName: typeName(reflect.TypeOf(instance)),
		Hook:     hook,
		Runtime:  runtime,
		Err:      err,
	})
}

func (inj *Injector) isClosed() bool {
	inj.mu.RLock()
	defer inj.mu.RUnlock()
	return inj.closed
}

// Close disposes every instance the injector constructed in reverse
// construction order, calling OnDestroy then Close where implemented, and
// drops all bindings. Closing twice is a no-op.
func (inj *Injector) Close() error {
	inj.mu.Lock()
	if inj.closed {
		inj.mu.Unlock()
		return nil
	}
	inj.closed = true
	inj.mu.Unlock()

	var errs error
	inj.lifecycle.dispose(func(instance any, hook string, err error, runtime time.Duration) {
		inj.reportDestroy(instance, hook, err, runtime)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", formatType(reflect.TypeOf(instance)), hook, err))
		}
	})

	inj.mu.Lock()
	inj.entries = make(map[Key]ProviderEntry)
	inj.order = nil
	inj.byType = make(map[reflect.Type][]Key)
	inj.instances = make(map[Key]cachedInstance)
	inj.mu.Unlock()

	inj.container.forget(inj)

	var result error
	if errs != nil {
		result = DisposalError{InjectorID: inj.id, Errors: multierr.Errors(errs)}
	}

	inj.container.logger.LogEvent(&event.Closed{InjectorID: inj.id, Err: result})
	return result
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return formatType(t)
}
