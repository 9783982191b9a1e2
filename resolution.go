package ioc

import (
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/internal/reflection"
)

// Resolve resolves the class or interface T from inj, registering a class on
// demand. Absence is a NotFoundError.
//
// Example:
//
//	svc, err := ioc.Resolve[*UserService](c)
//	if err != nil {
//	    return err
//	}
func Resolve[T any](inj *Injector, providers ...ProviderSpec) (T, error) {
	var zero T
	if inj == nil {
		return zero, ErrInjectorClosed
	}

	v, err := inj.Resolve(Request{
		Token:     TypeOf[T](),
		Providers: providers,
		Regify:    true,
		Required:  true,
	})
	if err != nil {
		return zero, err
	}

	return as[T](v)
}

// ResolveToken resolves token from inj and asserts the result to T.
//
// Example:
//
//	cfg, err := ioc.ResolveToken[*Config](c, "Config")
func ResolveToken[T any](inj *Injector, token Token, providers ...ProviderSpec) (T, error) {
	var zero T
	if inj == nil {
		return zero, ErrInjectorClosed
	}

	v, err := inj.Resolve(Request{Token: token, Providers: providers, Required: true})
	if err != nil {
		return zero, err
	}

	return as[T](v)
}

// MustResolve resolves T from inj.
// It panics if T cannot be resolved. This is useful for application
// initialization where missing services are fatal.
func MustResolve[T any](inj *Injector, providers ...ProviderSpec) T {
	v, err := Resolve[T](inj, providers...)
	if err != nil {
		panic(err)
	}
	return v
}

// Services resolves every binding visible from inj whose concrete type
// extends or implements T.
//
// Example:
//
//	animals, err := ioc.Services[Animal](c)
func Services[T any](inj *Injector) ([]T, error) {
	if inj == nil {
		return nil, ErrInjectorClosed
	}

	instances, err := inj.GetServices(TypeOf[T]()).Instances()
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(instances))
	for _, instance := range instances {
		v, err := as[T](instance)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func as[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}

	if t, ok := v.(T); ok {
		return t, nil
	}

	expected := reflect.TypeOf((*T)(nil)).Elem()
	if rv, ok := reflection.ValueOf(expected, v); ok {
		return rv.Interface().(T), nil
	}

	return zero, TypeMismatchError{
		Expected: expected,
		Actual:   reflect.TypeOf(v),
		Context:  fmt.Sprintf("resolving %s", formatType(expected)),
	}
}
