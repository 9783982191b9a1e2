package ioc

import (
	"github.com/junioryono/ioc/event"
)

// Request describes one lookup.
type Request struct {
	// Token is the key to resolve.
	Token Token
	Alias string

	// Target is the class the lookup runs on behalf of. Its private providers
	// and reference bindings take part in the lookup.
	Target Token

	// Default is resolved when Token has no provider.
	Default Token

	// Providers are ad hoc bindings for this call only. They take precedence
	// over every injector and are passed on to the construction of the
	// requested value, not to its dependencies.
	Providers []ProviderSpec

	// Regify registers Token on demand when it is a class with no provider.
	Regify bool

	// Required turns absence into a NotFoundError.
	Required bool
}

// Get resolves token. Absence is not an error: Get returns nil, nil when no
// provider is found.
//
// Example:
//
//	v, err := inj.Get("Config", ioc.Value("Env", "test"))
func (inj *Injector) Get(token Token, providers ...ProviderSpec) (any, error) {
	return inj.Resolve(Request{Token: token, Providers: providers})
}

// Resolve runs a lookup described by req.
func (inj *Injector) Resolve(req Request) (any, error) {
	return inj.resolveRequest(req, nil)
}

// resolveRequest resolves req inside sess, starting a new resolution when
// sess is nil.
func (inj *Injector) resolveRequest(req Request, sess *session) (any, error) {
	if req.Token == nil {
		return nil, ErrNilToken
	}

	key := KeyOf(req.Token, req.Alias)
	target := targetClass(req.Target)

	ctx := newContext(inj, StageResolve, sess)
	defer ctx.clear()

	ctx.Key = key
	ctx.Target = target
	ctx.Default = KeyOf(req.Default)
	ctx.forward = true

	if len(req.Providers) > 0 {
		set, err := inj.providerSet(req.Providers)
		if err != nil {
			return nil, err
		}
		ctx.Providers = set
	}

	v, found, err := inj.resolveIn(ctx, req.Regify)
	if err == nil && !found && req.Required {
		err = NotFoundError{Key: key, Requester: target}
	}

	if err != nil {
		inj.container.logger.LogEvent(&event.ResolveFailed{Key: key.String(), Target: typeName(target), Err: err})
		return nil, err
	}

	if found && sess == nil {
		inj.container.logger.LogEvent(&event.Resolved{Key: key.String(), Target: typeName(target)})
	}

	return v, nil
}

// providerSet compiles ad hoc providers.
func (inj *Injector) providerSet(specs []ProviderSpec) (*ProviderSet, error) {
	set := newProviderSet()
	for _, spec := range specs {
		entry, err := inj.compile(spec)
		if err != nil {
			return nil, RegistrationError{Key: spec.Key(), Operation: "compile ad hoc provider", Cause: err}
		}
		set.add(spec.Key(), entry, inj)
	}
	return set, nil
}

// resolveIn runs the resolve chain for ctx.Key, then for ctx.Default, then
// registers ctx.Key on demand when regify is set.
func (inj *Injector) resolveIn(ctx *Context, regify bool) (any, bool, error) {
	if err := inj.runResolveChain(ctx); err != nil || ctx.Found {
		return ctx.Value, ctx.Found, err
	}

	if !ctx.Default.IsZero() && ctx.Default != ctx.Key {
		key, providers := ctx.Key, ctx.Providers
		ctx.Key, ctx.Providers = ctx.Default, nil

		err := inj.runResolveChain(ctx)
		ctx.Key, ctx.Providers = key, providers
		if err != nil || ctx.Found {
			return ctx.Value, ctx.Found, err
		}
	}

	if regify {
		class, ok := ctx.Key.Class()
		if ok && ctx.Key.Alias() == "" && !ctx.Key.IsRef() {
			if err := inj.registerType(class, registerOptions{}); err != nil {
				return nil, false, err
			}
			if err := inj.runResolveChain(ctx); err != nil {
				return nil, false, err
			}
		}
	}

	return ctx.Value, ctx.Found, nil
}

func (inj *Injector) runResolveChain(ctx *Context) error {
	handlers, err := inj.container.actions.Handlers(ResolveChain, StageResolve, PhaseResolve)
	if err != nil {
		return err
	}

	ctx.Phase = PhaseResolve
	ctx.Value, ctx.Found = nil, false
	return runChain(ctx, handlers, nil)
}

// lookup resolves key for the class under construction. The ad hoc providers
// of the construction take part in the lookup but are not passed on.
func (ctx *Context) lookup(key Key, def Key, regify bool) (any, bool, error) {
	inj := ctx.Injector

	rctx := ctx.child(inj, StageResolve)
	defer rctx.clear()

	rctx.Key = key
	rctx.Target = ctx.Type
	rctx.Default = def
	rctx.Providers = ctx.Providers

	return inj.resolveIn(rctx, regify)
}

// invoke produces the value of entry, running its factory in owner.
func (inj *Injector) invoke(ctx *Context, owner *Injector, key Key, entry ProviderEntry) (any, error) {
	if entry.HasValue {
		return entry.Value, nil
	}

	if entry.Factory == nil {
		return nil, RegistrationError{Key: key, Operation: "resolve", Cause: ErrInvalidProvider}
	}

	fctx := ctx.child(owner, StageRuntime)
	defer fctx.clear()

	fctx.Key = key
	fctx.Target = ctx.Target
	if ctx.forward {
		fctx.Providers = ctx.Providers
	}

	return entry.Factory(fctx)
}

// found invokes entry and records its value as the result of the lookup.
func (ctx *Context) found(owner *Injector, entry ProviderEntry) error {
	v, err := ctx.Injector.invoke(ctx, owner, ctx.Key, entry)
	if err != nil {
		return err
	}
	ctx.Value, ctx.Found = v, true
	return nil
}

// resolveFromProviders looks the key up in the ad hoc providers of the call.
func resolveFromProviders(ctx *Context, next Next) error {
	if item, ok := ctx.Providers.item(ctx.Key); ok {
		return ctx.found(item.owner, item.entry)
	}
	return next()
}

// resolveFromInjector looks the key up in the injector itself.
func resolveFromInjector(ctx *Context, next Next) error {
	if entry, ok := ctx.Injector.entry(ctx.Key); ok {
		return ctx.found(ctx.Injector, entry)
	}
	return next()
}

// resolveFromPrivate looks the key up in the private providers of the target
// class, held by the injector that registered it.
func resolveFromPrivate(ctx *Context, next Next) error {
	if ctx.Target == nil || ctx.Key.IsRef() {
		return next()
	}

	if r, ok := ctx.Container().reflects.Get(ctx.Target); ok {
		if owner := r.Injector(); owner != nil {
			if entry, ok := owner.entry(RefKey(ctx.Key, ctx.Target)); ok {
				return ctx.found(owner, entry)
			}
		}
	}

	return next()
}

// resolveFromRefs looks up reference bindings of the key scoped to the target
// class or any class it extends.
func resolveFromRefs(ctx *Context, next Next) error {
	if ctx.Target == nil || ctx.Key.IsRef() {
		return next()
	}

	targets := []any{ctx.Target}
	if r, ok := ctx.Container().reflects.Get(ctx.Target); ok {
		for _, base := range r.Extends {
			targets = append(targets, base)
		}
	}

	for _, target := range targets {
		if entry, owner, ok := ctx.Injector.lookup(RefKey(ctx.Key, target)); ok {
			return ctx.found(owner, entry)
		}
	}

	return next()
}

// resolveFromParents delegates to the ancestors of the injector.
func resolveFromParents(ctx *Context, next Next) error {
	if parent := ctx.Injector.parent; parent != nil {
		if entry, owner, ok := parent.lookup(ctx.Key); ok {
			return ctx.found(owner, entry)
		}
	}
	return next()
}
