package reflection

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// PanicError is returned by Call when the invoked function panics.
type PanicError struct {
	Func  reflect.Type
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v panicked: %v", e.Func, e.Value)
}

// Call invokes fn with args, converting a trailing error return and a panic
// into an error. The first non-error return value is returned.
func Call(info *FuncInfo, args []reflect.Value) (result any, err error) {
	if info == nil {
		return nil, fmt.Errorf("function info cannot be nil")
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Func: info.Type, Value: r, Stack: debug.Stack()}
		}
	}()

	var results []reflect.Value
	if info.IsVariadic {
		results = info.Value.CallSlice(args)
	} else {
		results = info.Value.Call(args)
	}

	if info.HasErrorReturn {
		last := results[len(results)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		results = results[:len(results)-1]
	}

	if len(results) == 0 {
		return nil, nil
	}

	return results[0].Interface(), nil
}

// ValueOf returns v as a reflect.Value assignable to t. A nil v yields the
// zero value of t. ok is false when v cannot be assigned to t.
func ValueOf(t reflect.Type, v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Zero(t), true
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, true
	}

	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().AssignableTo(t) {
		return rv.Elem(), true
	}

	return reflect.Value{}, false
}
