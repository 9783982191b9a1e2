package ioc

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/junioryono/ioc/internal/reflection"
)

// Factory produces the value bound under a key.
type Factory func(ctx *Context) (any, error)

// ProviderEntry is a binding stored under a Key inside an injector.
type ProviderEntry struct {
	Factory Factory

	// Type is the concrete type the entry produces, when known.
	Type reflect.Type

	// Value is returned as is when HasValue is set.
	Value    any
	HasValue bool

	// Expires is the time after which the entry is treated as absent. The
	// zero time never expires.
	Expires time.Time
}

func (e ProviderEntry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && !now.Before(e.Expires)
}

type providerKind int

const (
	kindValue providerKind = iota + 1
	kindClass
	kindFactory
	kindExisting
	kindRaw
)

// ProviderSpec describes a binding to add to an injector or to pass as an ad
// hoc provider for one call. Build it with Value, UseClass, UseFactory or
// UseExisting.
type ProviderSpec struct {
	Token Token
	Alias string

	kind      providerKind
	value     any
	class     Token
	fn        any
	deps      []Token
	existing  Token
	raw       Factory
	rawType   reflect.Type
	singleton bool
	ttl       time.Duration
}

// Value binds token to v.
func Value(token Token, v any) ProviderSpec {
	return ProviderSpec{Token: token, kind: kindValue, value: v}
}

// UseClass binds token to instances of class.
func UseClass(token Token, class Token) ProviderSpec {
	return ProviderSpec{Token: token, kind: kindClass, class: class}
}

// UseFactory binds token to the result of fn. fn may be a Factory, or any
// function returning a value and an optional error whose parameters are
// resolved from deps by position, or by parameter type when deps runs out.
func UseFactory(token Token, fn any, deps ...Token) ProviderSpec {
	return ProviderSpec{Token: token, kind: kindFactory, fn: fn, deps: deps}
}

// UseExisting binds token to whatever existing resolves to.
func UseExisting(token Token, existing Token) ProviderSpec {
	return ProviderSpec{Token: token, kind: kindExisting, existing: existing}
}

// WithAlias qualifies the provider token with alias.
func (p ProviderSpec) WithAlias(alias string) ProviderSpec {
	p.Alias = alias
	return p
}

// AsSingleton caches the first produced value.
func (p ProviderSpec) AsSingleton() ProviderSpec {
	p.singleton = true
	return p
}

// WithTTL caches produced values for d. On a Value spec the binding itself
// expires after d.
func (p ProviderSpec) WithTTL(d time.Duration) ProviderSpec {
	p.ttl = d
	return p
}

// Key returns the key the provider binds.
func (p ProviderSpec) Key() Key {
	return KeyOf(p.Token, p.Alias)
}

func (p ProviderSpec) validate() error {
	if p.Token == nil {
		return fmt.Errorf("%w: %w", ErrInvalidProvider, ErrNilToken)
	}

	switch p.kind {
	case kindValue, kindRaw:
	case kindClass:
		if _, ok := KeyOf(p.class).Class(); !ok {
			return fmt.Errorf("%w: UseClass(%s): %w", ErrInvalidProvider, p.Key(), ErrNotAClass)
		}
	case kindFactory:
		if p.fn == nil || reflect.TypeOf(p.fn).Kind() != reflect.Func {
			return fmt.Errorf("%w: UseFactory(%s) needs a function, got %T", ErrInvalidProvider, p.Key(), p.fn)
		}
	case kindExisting:
		if p.existing == nil {
			return fmt.Errorf("%w: UseExisting(%s): %w", ErrInvalidProvider, p.Key(), ErrNilToken)
		}
	default:
		return fmt.Errorf("%w: %s has no source", ErrInvalidProvider, p.Key())
	}

	return nil
}

// compile turns spec into an entry owned by inj.
func (inj *Injector) compile(spec ProviderSpec) (ProviderEntry, error) {
	if err := spec.validate(); err != nil {
		return ProviderEntry{}, err
	}

	c := inj.container
	switch spec.kind {
	case kindValue:
		entry := ProviderEntry{Value: spec.value, HasValue: true}
		if spec.value != nil {
			entry.Type = normalizeType(reflect.TypeOf(spec.value))
		}
		if spec.ttl > 0 {
			entry.Expires = c.now().Add(spec.ttl)
		}
		return entry, nil

	case kindClass:
		class, _ := KeyOf(spec.class).Class()
		if err := inj.registerType(class, registerOptions{}); err != nil {
			return ProviderEntry{}, err
		}

		var override *bool
		if spec.singleton {
			override = &spec.singleton
		}
		return ProviderEntry{Factory: inj.classFactory(KeyOf(class), class, override), Type: class}, nil

	case kindExisting:
		existing := KeyOf(spec.existing)
		factory := func(ctx *Context) (any, error) {
			return ctx.Injector.resolveRequest(Request{Token: existing, Required: true}, ctx.session)
		}
		return ProviderEntry{Factory: factory, Type: existing.Type()}, nil

	case kindRaw:
		return ProviderEntry{Factory: memoize(spec.raw, spec.singleton, spec.ttl, c.now), Type: spec.rawType}, nil
	}

	switch fn := spec.fn.(type) {
	case Factory:
		return ProviderEntry{Factory: memoize(fn, spec.singleton, spec.ttl, c.now)}, nil
	case func(*Context) (any, error):
		return ProviderEntry{Factory: memoize(fn, spec.singleton, spec.ttl, c.now)}, nil
	}

	info, err := c.reflects.analyzer.AnalyzeFunc(spec.fn)
	if err != nil {
		return ProviderEntry{}, RegistrationError{Key: spec.Key(), Operation: "analyze factory for", Cause: err}
	}

	deps := make([]Key, len(info.Parameters))
	for i, p := range info.Parameters {
		if i < len(spec.deps) && spec.deps[i] != nil {
			deps[i] = KeyOf(spec.deps[i])
		} else {
			deps[i] = KeyOf(p.Type)
		}
	}

	factory := func(ctx *Context) (any, error) {
		args := make([]reflect.Value, len(info.Parameters))
		for i, p := range info.Parameters {
			v, err := ctx.Injector.resolveRequest(Request{Token: deps[i]}, ctx.session)
			if err != nil {
				return nil, err
			}

			arg, ok := reflection.ValueOf(p.Type, v)
			if !ok {
				return nil, TypeMismatchError{
					Expected: p.Type,
					Actual:   reflect.TypeOf(v),
					Context:  fmt.Sprintf("parameter %d of factory for %s", i, spec.Key()),
				}
			}
			args[i] = arg
		}

		result, err := reflection.Call(info, args)
		if err != nil {
			var panicErr *reflection.PanicError
			if errors.As(err, &panicErr) {
				return nil, ConstructorPanicError{Type: info.Type, Panic: panicErr.Value, Stack: panicErr.Stack}
			}
			return nil, ConstructorError{Type: info.Type, Cause: err}
		}
		return result, nil
	}

	var typ reflect.Type
	if len(info.Returns) == 1 {
		typ = normalizeType(info.Returns[0])
	}

	return ProviderEntry{Factory: memoize(factory, spec.singleton, spec.ttl, c.now), Type: typ}, nil
}

// memoize caches the value of f forever when singleton is set, or for ttl.
func memoize(f Factory, singleton bool, ttl time.Duration, now func() time.Time) Factory {
	if !singleton && ttl <= 0 {
		return f
	}

	var (
		mu      sync.Mutex
		value   any
		has     bool
		expires time.Time
	)

	return func(ctx *Context) (any, error) {
		mu.Lock()
		if has && (expires.IsZero() || now().Before(expires)) {
			v := value
			mu.Unlock()
			return v, nil
		}
		mu.Unlock()

		v, err := f(ctx)
		if err != nil {
			return nil, err
		}

		mu.Lock()
		defer mu.Unlock()
		value, has = v, true
		if !singleton {
			expires = now().Add(ttl)
		}
		return v, nil
	}
}

// ProviderSet is an ordered set of bindings without a parent. It holds the
// ad hoc providers of one call and the results of GetServices.
type ProviderSet struct {
	keys    []Key
	entries map[Key]setItem
}

type setItem struct {
	entry ProviderEntry
	owner *Injector
}

func newProviderSet() *ProviderSet {
	return &ProviderSet{entries: make(map[Key]setItem)}
}

func (s *ProviderSet) add(key Key, entry ProviderEntry, owner *Injector) {
	if _, exists := s.entries[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.entries[key] = setItem{entry: entry, owner: owner}
}

// Len returns the number of bindings.
func (s *ProviderSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the bound keys in insertion order.
func (s *ProviderSet) Keys() []Key {
	if s == nil {
		return nil
	}
	return append([]Key(nil), s.keys...)
}

// Types returns the concrete type of every binding in insertion order.
func (s *ProviderSet) Types() []reflect.Type {
	if s == nil {
		return nil
	}
	types := make([]reflect.Type, 0, len(s.keys))
	for _, k := range s.keys {
		types = append(types, s.entries[k].entry.Type)
	}
	return types
}

// Has reports whether token is bound in the set.
func (s *ProviderSet) Has(token Token, alias ...string) bool {
	_, ok := s.Entry(token, alias...)
	return ok
}

// Entry returns the binding of token.
func (s *ProviderSet) Entry(token Token, alias ...string) (ProviderEntry, bool) {
	if s == nil {
		return ProviderEntry{}, false
	}
	item, ok := s.entries[KeyOf(token, alias...)]
	return item.entry, ok
}

func (s *ProviderSet) item(key Key) (setItem, bool) {
	if s == nil {
		return setItem{}, false
	}
	item, ok := s.entries[key]
	return item, ok
}

// Instances produces the value of every binding in insertion order.
func (s *ProviderSet) Instances() ([]any, error) {
	if s == nil {
		return nil, nil
	}

	result := make([]any, 0, len(s.keys))
	for _, k := range s.keys {
		item := s.entries[k]
		ctx := newContext(item.owner, StageResolve, nil)
		ctx.Key = k
		v, err := item.owner.invoke(ctx, item.owner, k, item.entry)
		ctx.clear()
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}
