// Package ioc provides an annotation-driven dependency injection container
// with hierarchical injectors.
//
// # Overview
//
// Classes are Go struct types. A class describes how it is built through
// annotations, declared once per type with Declare or derived from struct tags:
//
//	type UserService struct {
//	    Store  Store   `inject:""`
//	    Config *Config `inject:"Config" optional:"true"`
//	}
//
//	func init() {
//	    ioc.Declare[UserService](
//	        ioc.Singleton(),
//	        ioc.ProvidedAs(ioc.TypeOf[Users]()),
//	    )
//	}
//
// Registering a class runs its design pipeline once per container. Resolving it
// runs the runtime pipeline, which calls the constructor, injects properties
// and runs lifecycle hooks:
//
//	c, err := ioc.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.RegisterType(ioc.TypeOf[UserService]()); err != nil {
//	    log.Fatal(err)
//	}
//
//	svc, err := ioc.Resolve[*UserService](c.Injector)
//
// # Tokens
//
// A token identifies a binding. It may be a reflect.Type, a string, an
// *InjectToken created with NewToken, or any token qualified by an alias with
// Alias. *T and T name the same class. KeyOf turns any token into its
// comparable Key.
//
// # Injectors
//
// Every container is the root injector of a tree. A child injector created with
// NewChild looks up missing keys in its ancestors. A class registered in a
// child is bound in that child only, and its singleton instances live there.
//
// # Resolution
//
// A lookup consults, in order, the ad hoc providers of the call, the private
// providers of the requesting class, reference bindings scoped to the
// requesting class or a class it extends, the injector, and the ancestors. A
// private provider therefore wins over a same-key binding of the injector
// whenever the lookup is made on behalf of its class. These steps
// are handlers registered under ResolveChain and may be extended with
// Actions.RegisterBefore and Actions.RegisterAfter.
//
// Absence is not an error: Get returns nil when nothing is bound. Use
// Request.Required or Resolve for a NotFoundError.
//
// # Custom Annotations
//
// Handlers registered for an annotation name, stage and phase run whenever a
// class carrying that annotation is registered (StageDesign) or constructed
// (StageRuntime):
//
//	c.Actions().Register("Audited", ioc.StageRuntime, ioc.PhaseAnnotation,
//	    func(ctx *ioc.Context, next ioc.Next) error {
//	        log.Printf("built %T", ctx.Instance)
//	        return next()
//	    })
//
// # Modules
//
// Modules group classes and provider specs. Container.Use registers them in
// dependency order and Container.Load fetches modules concurrently first.
package ioc
