package ioc

import (
	"fmt"
	"reflect"
	"time"

	"github.com/junioryono/ioc/event"
	"github.com/junioryono/ioc/internal/reflection"
)

var classPhases = [...]Phase{PhaseBeforeClass, PhaseClass, PhaseAfterClass}

// design runs the design stage for a class registered for the first time in
// the container, then binds it in inj.
func (c *Container) design(inj *Injector, r *TypeReflect, o registerOptions) error {
	start := time.Now()

	ctx := newContext(inj, StageDesign, nil)
	defer ctx.clear()

	ctx.Type = r.Type
	ctx.Key = KeyOf(r.Type)
	ctx.Reflect = r

	classAnns := r.ClassAnnotations()
	for _, phase := range classPhases {
		if err := c.runAnnotations(ctx, classAnns, phase); err != nil {
			return err
		}
	}

	if err := inj.bindClass(r, o); err != nil {
		return err
	}

	if err := c.runAnnotations(ctx, r.AnnotationsFor(TargetProperty), PhaseProperty); err != nil {
		return err
	}

	if err := c.runAnnotations(ctx, r.AnnotationsFor(TargetMethod, TargetParameter), PhaseMethod); err != nil {
		return err
	}

	if err := c.runAnnotations(ctx, classAnns, PhaseAnnotation); err != nil {
		return err
	}

	if err := c.autoRun(inj, r, o.alias); err != nil {
		return err
	}

	c.logger.LogEvent(&event.Registered{
		TypeName:    formatType(r.Type),
		InjectorID:  inj.id,
		Annotations: r.AnnotationNames(),
		Runtime:     time.Since(start),
	})

	return nil
}

// runAnnotations runs the handlers registered for every annotation in anns
// under the stage of ctx and phase.
func (c *Container) runAnnotations(ctx *Context, anns []Annotation, phase Phase) error {
	ctx.Phase = phase
	defer func() {
		ctx.Annotation = nil
		ctx.Property = nil
	}()

	for i := range anns {
		a := anns[i]

		handlers, err := c.actions.Handlers(a.Name, ctx.Stage, phase)
		if err != nil {
			return HandlerError{Type: ctx.Type, Annotation: a.Name, Stage: ctx.Stage, Phase: phase, Cause: err}
		}
		if len(handlers) == 0 {
			continue
		}

		ctx.Annotation = &a
		ctx.Property = nil
		if a.Target == TargetProperty && ctx.Reflect != nil {
			ctx.Property = ctx.Reflect.Property(a.Member)
		}

		if err := runChain(ctx, handlers, nil); err != nil {
			return HandlerError{Type: ctx.Type, Annotation: a.Name, Stage: ctx.Stage, Phase: phase, Cause: err}
		}
	}

	return nil
}

// autoRun calls the AutoRun methods of the class on one instance resolved
// through the key the class was registered under, in ascending order.
func (c *Container) autoRun(inj *Injector, r *TypeReflect, alias string) error {
	if len(r.AutoRuns) == 0 {
		return nil
	}

	instance, err := inj.resolveRequest(Request{Token: r.Type, Alias: alias, Required: true}, nil)
	if err != nil {
		return err
	}

	for _, ar := range r.AutoRuns {
		err := c.callAutoRun(inj, r, instance, ar)
		c.logger.LogEvent(&event.AutoRan{
			TypeName: formatType(r.Type),
			Method:   ar.Method,
			Order:    ar.Order,
			Err:      err,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Container) callAutoRun(inj *Injector, r *TypeReflect, instance any, ar AutoRunMeta) error {
	method := reflect.ValueOf(instance).MethodByName(ar.Method)
	if !method.IsValid() {
		return InvalidAnnotationError{
			Type:       r.Type,
			Annotation: AnnotationAutoRun,
			Member:     ar.Method,
			Cause:      fmt.Errorf("%T has no method %s", instance, ar.Method),
		}
	}

	info, err := c.reflects.analyzer.AnalyzeFunc(method.Interface())
	if err != nil {
		return InvalidAnnotationError{Type: r.Type, Annotation: AnnotationAutoRun, Member: ar.Method, Cause: err}
	}

	args := make([]reflect.Value, len(info.Parameters))
	for i, p := range info.Parameters {
		v, err := inj.resolveRequest(Request{Token: p.Type, Target: r.Type}, nil)
		if err != nil {
			return err
		}
		arg, ok := reflection.ValueOf(p.Type, v)
		if !ok {
			return TypeMismatchError{
				Expected: p.Type,
				Actual:   reflect.TypeOf(v),
				Context:  fmt.Sprintf("parameter %d of %s.%s", i, formatType(r.Type), ar.Method),
			}
		}
		args[i] = arg
	}

	if _, err := reflection.Call(info, args); err != nil {
		return fmt.Errorf("%s.%s: %w", formatType(r.Type), ar.Method, err)
	}
	return nil
}

// designInjectProperty registers the class of a by-type injected property so
// it can be resolved when the owner is constructed.
func designInjectProperty(ctx *Context, next Next) error {
	if p := ctx.Property; p != nil && p.Injected && p.Token == nil {
		if err := ensureRegistered(ctx, p.Key()); err != nil {
			return err
		}
	}
	return next()
}

// designConstructor registers the classes of by-type constructor parameters.
func designConstructor(ctx *Context, next Next) error {
	params, err := ctx.Reflect.Params()
	if err != nil {
		return err
	}

	for _, p := range params {
		if p.Token != nil {
			continue
		}
		if err := ensureRegistered(ctx, p.Key()); err != nil {
			return err
		}
	}

	return next()
}

func ensureRegistered(ctx *Context, key Key) error {
	class, ok := key.Class()
	if !ok || key.Alias() != "" {
		return nil
	}

	if ctx.Injector.Has(key) || ctx.Container().IsRegistered(class) {
		return nil
	}

	return ctx.Injector.registerType(class, registerOptions{})
}
