package ioc

import (
	"fmt"
	"reflect"
	"sync"
)

// Stage is a pipeline stage.
type Stage int

const (
	// StageDesign runs once per class, the first time it is registered.
	StageDesign Stage = iota
	// StageRuntime runs once per constructed instance.
	StageRuntime
	// StageResolve runs once per lookup.
	StageResolve
)

func (s Stage) String() string {
	switch s {
	case StageDesign:
		return "design"
	case StageRuntime:
		return "runtime"
	case StageResolve:
		return "resolve"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Phase is the sub-phase of a stage a handler runs in.
type Phase int

const (
	PhaseBeforeClass Phase = iota
	PhaseClass
	PhaseAfterClass
	PhaseProperty
	PhaseMethod
	PhaseAnnotation
	PhaseBeforeConstructor
	PhaseAfterConstructor
	PhaseResolve
)

var phaseNames = [...]string{
	PhaseBeforeClass:       "before-class",
	PhaseClass:             "class",
	PhaseAfterClass:        "after-class",
	PhaseProperty:          "property",
	PhaseMethod:            "method",
	PhaseAnnotation:        "annotation",
	PhaseBeforeConstructor: "before-constructor",
	PhaseAfterConstructor:  "after-constructor",
	PhaseResolve:           "resolve",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ResolveChain is the reserved annotation name the resolve steps are
// registered under. Insert handlers before or after the built-in steps to
// customize lookup.
const ResolveChain = "ioc.ResolveChain"

// Next continues the handler chain.
type Next func() error

// Handler processes one pipeline step. Call next to continue the chain;
// returning without calling it ends the chain.
type Handler func(ctx *Context, next Next) error

// Action is a handler implemented as a type. Action classes registered by
// token are resolved from the container on first use.
type Action interface {
	Execute(ctx *Context, next Next) error
}

type actionKey struct {
	name  string
	stage Stage
	phase Phase
}

type nameStage struct {
	name  string
	stage Stage
}

// Actions maps annotation names to ordered handler chains, partitioned by
// stage and phase. Handler references may be a Handler, a
// func(*Context, Next) error, an Action, or a token of an Action class.
type Actions struct {
	mu    sync.RWMutex
	refs  map[actionKey][]any
	cache map[nameStage]map[Phase][]Handler

	// resolve turns a class token reference into an Action instance.
	resolve func(token Token) (any, error)

	builtins bool
}

// NewActions creates an empty registry.
func NewActions() *Actions {
	return &Actions{
		refs:  make(map[actionKey][]any),
		cache: make(map[nameStage]map[Phase][]Handler),
	}
}

// Register appends handler references to the chain of (name, stage, phase).
func (a *Actions) Register(name string, stage Stage, phase Phase, handlers ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := actionKey{name, stage, phase}
	a.refs[key] = append(a.refs[key], handlers...)
	a.invalidate(name, stage)
}

// RegisterBefore inserts handlers before anchor. When anchor is not in the
// chain the handlers are prepended.
func (a *Actions) RegisterBefore(name string, stage Stage, phase Phase, anchor any, handlers ...any) {
	a.insert(name, stage, phase, anchor, handlers, false)
}

// RegisterAfter inserts handlers after anchor. When anchor is not in the
// chain the handlers are appended.
func (a *Actions) RegisterAfter(name string, stage Stage, phase Phase, anchor any, handlers ...any) {
	a.insert(name, stage, phase, anchor, handlers, true)
}

func (a *Actions) insert(name string, stage Stage, phase Phase, anchor any, handlers []any, after bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := actionKey{name, stage, phase}
	list := a.refs[key]

	pos := -1
	for i, ref := range list {
		if sameRef(ref, anchor) {
			pos = i
			break
		}
	}

	switch {
	case pos < 0 && after:
		pos = len(list)
	case pos < 0:
		pos = 0
	case after:
		pos++
	}

	updated := make([]any, 0, len(list)+len(handlers))
	updated = append(updated, list[:pos]...)
	updated = append(updated, handlers...)
	updated = append(updated, list[pos:]...)

	a.refs[key] = updated
	a.invalidate(name, stage)
}

// Unregister removes handler from the chain. It reports whether the handler
// was found.
func (a *Actions) Unregister(name string, stage Stage, phase Phase, handler any) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := actionKey{name, stage, phase}
	list := a.refs[key]
	for i, ref := range list {
		if sameRef(ref, handler) {
			updated := make([]any, 0, len(list)-1)
			updated = append(updated, list[:i]...)
			updated = append(updated, list[i+1:]...)
			a.refs[key] = updated
			a.invalidate(name, stage)
			return true
		}
	}

	return false
}

// Has reports whether any handler is registered for (name, stage, phase).
func (a *Actions) Has(name string, stage Stage, phase Phase) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.refs[actionKey{name, stage, phase}]) > 0
}

// Len returns the number of handler references in the chain.
func (a *Actions) Len(name string, stage Stage, phase Phase) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.refs[actionKey{name, stage, phase}])
}

// Handlers returns the resolved chain of (name, stage, phase). Resolution is
// cached until the chains of (name, stage) change.
func (a *Actions) Handlers(name string, stage Stage, phase Phase) ([]Handler, error) {
	ns := nameStage{name, stage}

	a.mu.RLock()
	if phases, ok := a.cache[ns]; ok {
		if handlers, ok := phases[phase]; ok {
			a.mu.RUnlock()
			return handlers, nil
		}
	}
	refs := append([]any(nil), a.refs[actionKey{name, stage, phase}]...)
	resolve := a.resolve
	a.mu.RUnlock()

	handlers := make([]Handler, 0, len(refs))
	for _, ref := range refs {
		h, err := toHandler(ref, resolve)
		if err != nil {
			return nil, fmt.Errorf("%s/%s/%s: %w", name, stage, phase, err)
		}
		handlers = append(handlers, h)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Skip caching when the chain changed while resolving.
	current := a.refs[actionKey{name, stage, phase}]
	if len(current) != len(refs) {
		return handlers, nil
	}
	for i := range current {
		if !sameRef(current[i], refs[i]) {
			return handlers, nil
		}
	}

	phases, ok := a.cache[ns]
	if !ok {
		phases = make(map[Phase][]Handler)
		a.cache[ns] = phases
	}
	phases[phase] = handlers

	return handlers, nil
}

// invalidate drops the resolved chains of (name, stage). Callers hold mu.
func (a *Actions) invalidate(name string, stage Stage) {
	delete(a.cache, nameStage{name, stage})
}

func (a *Actions) setResolver(resolve func(Token) (any, error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resolve = resolve
	a.cache = make(map[nameStage]map[Phase][]Handler)
}

func toHandler(ref any, resolve func(Token) (any, error)) (Handler, error) {
	switch h := ref.(type) {
	case nil:
		return nil, ErrInvalidHandler
	case Handler:
		return h, nil
	case func(*Context, Next) error:
		return h, nil
	case Action:
		return h.Execute, nil
	case reflect.Type, *InjectToken, Key, Qualified:
		if resolve == nil {
			return nil, fmt.Errorf("%w: cannot resolve %v without a container", ErrInvalidHandler, ref)
		}

		instance, err := resolve(h)
		if err != nil {
			return nil, err
		}

		switch v := instance.(type) {
		case Action:
			return v.Execute, nil
		case Handler:
			return v, nil
		case func(*Context, Next) error:
			return v, nil
		case nil:
			return nil, NotFoundError{Key: KeyOf(h)}
		default:
			return nil, fmt.Errorf("%w: %T is not an Action", ErrInvalidHandler, instance)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidHandler, ref)
	}
}

// sameRef reports whether two handler references are the same handler.
// Functions compare by code pointer.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.Func && vb.Kind() == reflect.Func {
		return va.Pointer() == vb.Pointer()
	}

	if va.Type() != vb.Type() || !va.Type().Comparable() {
		return false
	}

	return a == b
}

// runChain runs handlers in order, then done when every handler called next.
func runChain(ctx *Context, handlers []Handler, done Next) error {
	var step func(i int) error
	step = func(i int) error {
		if i >= len(handlers) {
			if done != nil {
				return done()
			}
			return nil
		}
		return handlers[i](ctx, func() error { return step(i + 1) })
	}
	return step(0)
}
