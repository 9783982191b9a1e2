package ioc

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"

	"github.com/junioryono/ioc/internal/reflection"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// FromDig returns a provider spec that resolves t out of a dig container. The
// spec is bound under t.
//
// Example:
//
//	dc := dig.New()
//	_ = dc.Provide(NewLogger)
//	err := c.Register(ioc.FromDig(dc, reflect.TypeOf((*Logger)(nil))))
func FromDig(dc *dig.Container, t reflect.Type) ProviderSpec {
	invoke := func(*Context) (any, error) {
		var result any
		fn := reflect.MakeFunc(reflect.FuncOf([]reflect.Type{t}, nil, false), func(args []reflect.Value) []reflect.Value {
			result = args[0].Interface()
			return nil
		})

		if err := dc.Invoke(fn.Interface()); err != nil {
			return nil, fmt.Errorf("resolve %s from dig: %w", formatType(t), err)
		}
		return result, nil
	}

	return ProviderSpec{Token: t, kind: kindRaw, raw: invoke, rawType: normalizeType(t)}
}

// ExportToDig provides tokens resolved from inj to a dig container. Each
// token must be a type; classes are provided as pointers.
func ExportToDig(dc *dig.Container, inj *Injector, tokens ...Token) error {
	for _, token := range tokens {
		key := KeyOf(token)
		t := key.Type()
		if t == nil {
			return RegistrationError{Key: key, Operation: "export to dig", Cause: fmt.Errorf("%w: dig needs a type token", ErrInvalidProvider)}
		}

		out := t
		if t.Kind() == reflect.Struct {
			out = reflect.PointerTo(t)
		}

		fn := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{out, errorType}, false), func([]reflect.Value) []reflect.Value {
			fail := func(err error) []reflect.Value {
				return []reflect.Value{reflect.Zero(out), reflect.ValueOf(&err).Elem()}
			}

			v, err := inj.Resolve(Request{Token: key, Regify: true, Required: true})
			if err != nil {
				return fail(err)
			}

			value, ok := reflection.ValueOf(out, v)
			if !ok {
				return fail(TypeMismatchError{Expected: out, Actual: reflect.TypeOf(v), Context: "export to dig"})
			}
			return []reflect.Value{value, reflect.Zero(errorType)}
		})

		if err := dc.Provide(fn.Interface()); err != nil {
			return RegistrationError{Type: t, Key: key, Operation: "export to dig", Cause: err}
		}
	}

	return nil
}
