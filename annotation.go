package ioc

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Built-in annotation names.
const (
	AnnotationInjectable  = "Injectable"
	AnnotationSingleton   = "Singleton"
	AnnotationProvidedAs  = "ProvidedAs"
	AnnotationRefs        = "Refs"
	AnnotationProviders   = "Providers"
	AnnotationExtends     = "Extends"
	AnnotationInject      = "Inject"
	AnnotationParam       = "Param"
	AnnotationConstructor = "Constructor"
	AnnotationAutoRun     = "AutoRun"
	AnnotationTTL         = "TTL"
)

// Target is the kind of declaration an annotation is attached to.
type Target int

const (
	TargetClass Target = iota
	TargetProperty
	TargetMethod
	TargetParameter
)

func (t Target) String() string {
	switch t {
	case TargetClass:
		return "class"
	case TargetProperty:
		return "property"
	case TargetMethod:
		return "method"
	case TargetParameter:
		return "parameter"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Annotation is one declarative marker attached to a class or one of its
// members. Handlers registered in Actions under Name run when the class is
// registered, constructed or resolved.
type Annotation struct {
	Name   string
	Target Target

	// Member is the field or method name for property, method and
	// parameter annotations.
	Member string

	// Index is the parameter position for parameter annotations.
	Index int

	Metadata any
}

// String returns a readable form of the annotation.
func (a Annotation) String() string {
	switch a.Target {
	case TargetProperty, TargetMethod:
		return fmt.Sprintf("%s(%s)", a.Name, a.Member)
	case TargetParameter:
		return fmt.Sprintf("%s(%s#%d)", a.Name, a.Member, a.Index)
	default:
		return a.Name
	}
}

// InjectMeta is the metadata of Inject and Param annotations.
type InjectMeta struct {
	Token    Token
	Alias    string
	Optional bool
	Default  Token
}

// ProvideMeta is the metadata of ProvidedAs annotations.
type ProvideMeta struct {
	Token Token
	Alias string
}

// RefMeta is the metadata of Refs annotations: the annotated class provides
// Provide to instances of Target.
type RefMeta struct {
	Target  Token
	Provide Token
	Alias   string
}

// AutoRunMeta is the metadata of AutoRun annotations.
type AutoRunMeta struct {
	Method string
	Order  int
}

var declarations = struct {
	sync.RWMutex
	byType map[reflect.Type][]Annotation
}{byType: make(map[reflect.Type][]Annotation)}

// Declare attaches annotations to the class T. Declarations are part of the
// class definition and are usually made from an init function:
//
//	func init() {
//	    ioc.Declare[UserService](
//	        ioc.Singleton(),
//	        ioc.Constructor(NewUserService),
//	        ioc.ProvidedAs(ioc.TypeOf[UserStore]()),
//	    )
//	}
func Declare[T any](annotations ...Annotation) {
	DeclareType(TypeOf[T](), annotations...)
}

// DeclareType attaches annotations to the class t.
func DeclareType(t reflect.Type, annotations ...Annotation) {
	t = normalizeType(t)
	if t == nil {
		return
	}

	declarations.Lock()
	defer declarations.Unlock()
	declarations.byType[t] = append(declarations.byType[t], annotations...)
}

// Declarations returns the annotations declared for the class t.
func Declarations(t reflect.Type) []Annotation {
	t = normalizeType(t)

	declarations.RLock()
	defer declarations.RUnlock()

	decls := declarations.byType[t]
	result := make([]Annotation, len(decls))
	copy(result, decls)
	return result
}

// Injectable marks a class as registrable.
func Injectable() Annotation {
	return Annotation{Name: AnnotationInjectable, Target: TargetClass}
}

// Singleton marks a class as singleton: one instance per binding injector.
func Singleton() Annotation {
	return Annotation{Name: AnnotationSingleton, Target: TargetClass}
}

// ProvidedAs binds the class under token in addition to its own type.
func ProvidedAs(token Token, alias ...string) Annotation {
	meta := ProvideMeta{Token: token}
	if len(alias) > 0 {
		meta.Alias = alias[0]
	}
	return Annotation{Name: AnnotationProvidedAs, Target: TargetClass, Metadata: meta}
}

// Refs binds the class as the provider of provide for instances of target
// only.
func Refs(target Token, provide Token, alias ...string) Annotation {
	meta := RefMeta{Target: target, Provide: provide}
	if len(alias) > 0 {
		meta.Alias = alias[0]
	}
	return Annotation{Name: AnnotationRefs, Target: TargetClass, Metadata: meta}
}

// Providers declares private providers visible only when resolving on
// behalf of the class.
func Providers(specs ...ProviderSpec) Annotation {
	return Annotation{Name: AnnotationProviders, Target: TargetClass, Metadata: specs}
}

// Extends adds base to the class extension chain.
func Extends(base Token) Annotation {
	return Annotation{Name: AnnotationExtends, Target: TargetClass, Metadata: base}
}

// Inject injects token into the exported field. It is the declaration form
// of the inject struct tag.
func Inject(field string, token Token, alias ...string) Annotation {
	meta := InjectMeta{Token: token}
	if len(alias) > 0 {
		meta.Alias = alias[0]
	}
	return Annotation{Name: AnnotationInject, Target: TargetProperty, Member: field, Metadata: meta}
}

// InjectDefault injects token into field, falling back to def when token has
// no provider.
func InjectDefault(field string, token Token, def Token) Annotation {
	return Annotation{
		Name:     AnnotationInject,
		Target:   TargetProperty,
		Member:   field,
		Metadata: InjectMeta{Token: token, Default: def},
	}
}

// Param sets the token resolved for constructor parameter index.
func Param(index int, token Token, alias ...string) Annotation {
	meta := InjectMeta{Token: token}
	if len(alias) > 0 {
		meta.Alias = alias[0]
	}
	return Annotation{Name: AnnotationParam, Target: TargetParameter, Member: "constructor", Index: index, Metadata: meta}
}

// Constructor sets the function used to build the class. fn must return *T
// or T, optionally followed by an error. Its parameters are resolved by type
// unless a Param annotation names a token.
func Constructor(fn any) Annotation {
	return Annotation{Name: AnnotationConstructor, Target: TargetMethod, Member: "constructor", Metadata: fn}
}

// AutoRun invokes method on the registered instance once registration
// completes. Lower orders run first.
func AutoRun(method string, order int) Annotation {
	return Annotation{
		Name:     AnnotationAutoRun,
		Target:   TargetMethod,
		Member:   method,
		Metadata: AutoRunMeta{Method: method, Order: order},
	}
}

// TTL caches constructed instances for d. A non-positive d uses
// Config.DefaultTTL.
func TTL(d time.Duration) Annotation {
	return Annotation{Name: AnnotationTTL, Target: TargetClass, Metadata: d}
}

// Custom builds an annotation for a third-party marker. Handlers for name are
// registered with Actions.Register.
func Custom(name string, target Target, member string, metadata any) Annotation {
	return Annotation{Name: name, Target: target, Member: member, Metadata: metadata}
}
