package ioc

import (
	"reflect"

	"github.com/junioryono/ioc/internal/graph"
)

// Context is the short-lived record a pipeline run passes to its handlers.
// It is cleared when the run finishes; handlers must not retain it.
type Context struct {
	// Injector is the injector the pipeline runs in.
	Injector *Injector

	Stage Stage
	Phase Phase

	// Key is the key being registered, constructed or resolved.
	Key Key

	// Type is the class being registered or constructed.
	Type reflect.Type

	Reflect *TypeReflect

	// Target is the class a resolution runs on behalf of.
	Target reflect.Type

	// Default is resolved when Key has no provider.
	Default Key

	// Providers are the ad hoc providers of this call.
	Providers *ProviderSet

	// Args are the constructor arguments. BeforeConstructor handlers may
	// replace them.
	Args []reflect.Value

	// Instance is the constructed instance. AfterConstructor handlers may
	// replace it.
	Instance any

	// Annotation is the annotation whose handlers are running.
	Annotation *Annotation

	// Property is set while property handlers run.
	Property *PropertyMeta

	// Value and Found carry the result of the resolve stage.
	Value any
	Found bool

	session *session
	scratch map[string]any

	// forward passes Providers on to the factory of the resolved entry.
	forward bool
}

// session is the state shared by every nested pipeline run of one top level
// resolution.
type session struct {
	stack    []reflect.Type
	maxDepth int
}

func newSession(maxDepth int) *session {
	return &session{maxDepth: maxDepth}
}

// enter pushes t on the resolution stack. The returned func pops it.
func (s *session) enter(t reflect.Type) (func(), error) {
	for i, existing := range s.stack {
		if existing == t {
			path := make([]graph.NodeKey, 0, len(s.stack)-i)
			for _, p := range s.stack[i:] {
				path = append(path, graph.NodeKey{Type: p})
			}
			return nil, &CircularDependencyError{Node: graph.NodeKey{Type: t}, Path: path}
		}
	}

	if s.maxDepth > 0 && len(s.stack) >= s.maxDepth {
		return nil, MaxDepthError{Type: t, Depth: s.maxDepth}
	}

	s.stack = append(s.stack, t)
	return func() { s.stack = s.stack[:len(s.stack)-1] }, nil
}

func newContext(inj *Injector, stage Stage, sess *session) *Context {
	if sess == nil {
		sess = newSession(inj.container.config.MaxResolveDepth)
	}
	return &Context{Injector: inj, Stage: stage, session: sess}
}

// Container returns the container that owns the injector.
func (ctx *Context) Container() *Container {
	return ctx.Injector.container
}

// Set stores a scratch value for later handlers of the same run.
func (ctx *Context) Set(name string, value any) {
	if ctx.scratch == nil {
		ctx.scratch = make(map[string]any)
	}
	ctx.scratch[name] = value
}

// Get returns a scratch value stored with Set.
func (ctx *Context) Get(name string) (any, bool) {
	v, ok := ctx.scratch[name]
	return v, ok
}

// Resolve resolves a dependency inside the current resolution, so cycle
// detection and the depth limit cover it. A zero Target defaults to the class
// of the context.
func (ctx *Context) Resolve(req Request) (any, error) {
	if req.Target == nil && ctx.Type != nil {
		req.Target = ctx.Type
	}
	return ctx.Injector.resolveRequest(req, ctx.session)
}

// Depth returns the number of classes under construction in the current
// resolution.
func (ctx *Context) Depth() int {
	return len(ctx.session.stack)
}

// child returns a context for a nested pipeline run sharing the session.
func (ctx *Context) child(inj *Injector, stage Stage) *Context {
	return newContext(inj, stage, ctx.session)
}

// clear drops every reference held by the context.
func (ctx *Context) clear() {
	*ctx = Context{}
}
