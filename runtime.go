package ioc

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/junioryono/ioc/event"
	"github.com/junioryono/ioc/internal/reflection"
	"github.com/junioryono/ioc/internal/typecache"
)

// instantiate produces an instance of class t bound in inj under key.
// Singleton and TTL instances are cached in inj under key unless the call
// carries ad hoc providers.
func (inj *Injector) instantiate(ctx *Context, key Key, t reflect.Type, singletonOverride *bool) (any, error) {
	if inj.isClosed() {
		return nil, ConstructorError{Type: t, Cause: ErrInjectorClosed}
	}

	c := inj.container
	if !c.IsRegistered(t) {
		if err := inj.registerType(t, registerOptions{singleton: singletonOverride}); err != nil {
			return nil, err
		}
	}

	r, err := c.reflects.Create(t)
	if err != nil {
		return nil, err
	}

	singleton, ttl := r.Singleton, time.Duration(0)
	if r.HasTTL {
		ttl = r.TTL
		if ttl <= 0 {
			ttl = c.config.DefaultTTL
		}
	}
	if singletonOverride != nil {
		singleton = *singletonOverride
		if !singleton {
			ttl = 0
		}
	}

	adhoc := ctx.Providers.Len() > 0
	if !adhoc && (singleton || ttl > 0) {
		if v, ok := inj.cached(key); ok {
			return v, nil
		}
	}

	release, err := ctx.session.enter(t)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	instance, err := inj.construct(ctx, r)
	c.logger.LogEvent(&event.Constructed{
		TypeName:  formatType(t),
		Singleton: singleton,
		Runtime:   time.Since(start),
		Err:       err,
	})
	if err != nil {
		return nil, err
	}

	if !adhoc {
		switch {
		case singleton:
			if winner := inj.cache(key, instance, 0); winner != instance {
				// Lost a concurrent construction; the loser is never handed out.
				destroy(instance, inj.reportDestroy)
				return winner, nil
			}
		case ttl > 0:
			inj.cache(key, instance, ttl)
		}
	}

	inj.lifecycle.track(instance)
	return instance, nil
}

// construct runs the runtime stage for one instance of r.
func (inj *Injector) construct(parent *Context, r *TypeReflect) (any, error) {
	c := inj.container

	ctx := parent.child(inj, StageRuntime)
	defer ctx.clear()

	ctx.Type = r.Type
	ctx.Key = KeyOf(r.Type)
	ctx.Reflect = r
	ctx.Target = parent.Target
	ctx.Providers = parent.Providers

	args, err := inj.resolveParams(ctx, r)
	if err != nil {
		return nil, err
	}
	ctx.Args = args

	classAnns := r.ClassAnnotations()
	if err := c.runAnnotations(ctx, classAnns, PhaseBeforeConstructor); err != nil {
		return nil, err
	}

	instance, err := newInstance(r, ctx.Args)
	if err != nil {
		return nil, err
	}
	ctx.Instance = instance

	if err := c.runAnnotations(ctx, classAnns, PhaseAfterConstructor); err != nil {
		return nil, err
	}

	if err := c.runAnnotations(ctx, r.AnnotationsFor(TargetProperty), PhaseProperty); err != nil {
		return nil, err
	}

	if err := c.runAnnotations(ctx, r.AnnotationsFor(TargetMethod, TargetParameter), PhaseMethod); err != nil {
		return nil, err
	}

	if init, ok := ctx.Instance.(Initializer); ok {
		if err := inj.runHook(ctx.Instance, "OnInit", init.OnInit); err != nil {
			return nil, err
		}
	}

	if err := c.runAnnotations(ctx, classAnns, PhaseAnnotation); err != nil {
		return nil, err
	}

	if post, ok := ctx.Instance.(PostInitializer); ok {
		if err := inj.runHook(ctx.Instance, "AfterInit", post.AfterInit); err != nil {
			return nil, err
		}
	}

	return ctx.Instance, nil
}

func (inj *Injector) runHook(instance any, hook string, fn func() error) error {
	start := time.Now()
	err := fn()
	inj.container.logger.LogEvent(&event.HookExecuted{
		TypeName: formatType(reflect.TypeOf(instance)),
		Hook:     hook,
		Runtime:  time.Since(start),
		Err:      err,
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", formatType(reflect.TypeOf(instance)), hook, err)
	}
	return nil
}

// resolveParams resolves the constructor arguments of r. A primitive
// parameter without a provider gets its zero value; a class parameter is
// registered on demand.
func (inj *Injector) resolveParams(ctx *Context, r *TypeReflect) ([]reflect.Value, error) {
	params, err := r.Params()
	if err != nil {
		return nil, err
	}

	args := make([]reflect.Value, len(params))
	for i, p := range params {
		key := p.Key()
		v, found, err := ctx.lookup(key, KeyOf(p.Default), false)
		if err != nil {
			return nil, err
		}

		if !found && p.Token == nil && !typecache.IsPrimitive(p.Type) {
			if v, _, err = ctx.lookup(key, Key{}, true); err != nil {
				return nil, err
			}
		}

		arg, ok := reflection.ValueOf(p.Type, v)
		if !ok {
			return nil, TypeMismatchError{
				Expected: p.Type,
				Actual:   reflect.TypeOf(v),
				Context:  fmt.Sprintf("parameter %d of %s", i, formatType(r.Type)),
			}
		}
		args[i] = arg
	}

	return args, nil
}

// newInstance calls the constructor of r, or allocates a zero instance when it
// has none.
func newInstance(r *TypeReflect, args []reflect.Value) (any, error) {
	if r.constructor == nil {
		return reflect.New(r.Type).Interface(), nil
	}

	result, err := reflection.Call(r.constructor, args)
	if err != nil {
		var panicErr *reflection.PanicError
		if errors.As(err, &panicErr) {
			return nil, ConstructorPanicError{Type: r.Type, Panic: panicErr.Value, Stack: panicErr.Stack}
		}
		return nil, ConstructorError{Type: r.Type, Cause: err}
	}

	rv := reflect.ValueOf(result)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil, ConstructorError{Type: r.Type, Cause: ErrNilResult}
	}

	if rv.Kind() == reflect.Struct {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		return ptr.Interface(), nil
	}

	return result, nil
}

// injectProperty sets an injected property of the instance under
// construction. A property without a provider is left unset unless
// Config.StrictProperties is set and the property is not optional.
func injectProperty(ctx *Context, next Next) error {
	p := ctx.Property
	if p == nil || !p.Injected || ctx.Instance == nil {
		return next()
	}

	rv := reflect.ValueOf(ctx.Instance)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != ctx.Type {
		return next()
	}

	key := p.Key()
	v, found, err := ctx.lookup(key, KeyOf(p.Default), false)
	if err != nil {
		return err
	}

	if !found && p.Token == nil {
		if _, ok := key.Class(); ok {
			if v, found, err = ctx.lookup(key, Key{}, true); err != nil {
				return err
			}
		}
	}

	if !found {
		if ctx.Container().config.StrictProperties && !p.Optional {
			return NotFoundError{Key: key, Requester: ctx.Type}
		}
		return next()
	}

	field := rv.Elem().FieldByIndex(p.Index)
	value, ok := reflection.ValueOf(field.Type(), v)
	if !ok {
		return TypeMismatchError{
			Expected: field.Type(),
			Actual:   reflect.TypeOf(v),
			Context:  fmt.Sprintf("property %s of %s", p.Name, formatType(ctx.Type)),
		}
	}
	field.Set(value)

	return next()
}
