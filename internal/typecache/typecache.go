// Package typecache caches reflection facts about types so the pipelines do
// not re-derive them on every resolution.
package typecache

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Info holds pre-computed reflection information about a type.
type Info struct {
	Type    reflect.Type
	Kind    reflect.Kind
	PkgPath string
	Name    string
	String  string

	IsInterface bool
	IsPointer   bool
	IsStruct    bool
	IsFunc      bool
	IsPrimitive bool
	CanBeNil    bool

	// Class is the struct type behind a struct or pointer-to-struct type,
	// nil for everything else.
	Class reflect.Type

	// ElementType is set for pointer, slice, array, chan and map types.
	ElementType reflect.Type
	KeyType     reflect.Type

	formattedName     string
	formattedNameOnce sync.Once
}

var cache sync.Map // map[reflect.Type]*Info

// GetTypeInfo returns cached type information or creates it if not present.
func GetTypeInfo(t reflect.Type) *Info {
	if t == nil {
		return nil
	}

	if cached, ok := cache.Load(t); ok {
		return cached.(*Info)
	}

	actual, _ := cache.LoadOrStore(t, createInfo(t))
	return actual.(*Info)
}

func createInfo(t reflect.Type) *Info {
	info := &Info{
		Type:    t,
		Kind:    t.Kind(),
		PkgPath: t.PkgPath(),
		Name:    t.Name(),
		String:  t.String(),
	}

	info.IsInterface = info.Kind == reflect.Interface
	info.IsPointer = info.Kind == reflect.Pointer
	info.IsStruct = info.Kind == reflect.Struct
	info.IsFunc = info.Kind == reflect.Func

	switch info.Kind {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String:
		info.IsPrimitive = true
	}

	switch info.Kind {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		info.CanBeNil = true
	}

	switch info.Kind {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan:
		info.ElementType = t.Elem()
	case reflect.Map:
		info.ElementType = t.Elem()
		info.KeyType = t.Key()
	}

	switch {
	case info.IsStruct:
		info.Class = t
	case info.IsPointer && t.Elem().Kind() == reflect.Struct:
		info.Class = t.Elem()
	}

	return info
}

// ClassOf returns the struct type behind t when t is a struct or a pointer
// to a struct.
func ClassOf(t reflect.Type) (reflect.Type, bool) {
	info := GetTypeInfo(t)
	if info == nil || info.Class == nil {
		return nil, false
	}

	return info.Class, true
}

// IsPrimitive reports whether t is a basic type that is never auto-constructed.
func IsPrimitive(t reflect.Type) bool {
	info := GetTypeInfo(t)
	return info != nil && info.IsPrimitive
}

// CanBeNil reports whether a value of type t may be nil.
func CanBeNil(t reflect.Type) bool {
	info := GetTypeInfo(t)
	return info != nil && info.CanBeNil
}

// FormattedName returns a short, package-qualified name for error messages.
func (info *Info) FormattedName() string {
	info.formattedNameOnce.Do(func() {
		info.formattedName = formatWithDepth(info, 0)
	})

	return info.formattedName
}

// Format formats t for error messages and log output.
func Format(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	return GetTypeInfo(t).FormattedName()
}

func formatWithDepth(info *Info, depth int) string {
	const maxDepth = 50

	if info == nil || info.Type == nil {
		return "<nil>"
	}

	if depth > maxDepth {
		return info.String
	}

	switch info.Kind {
	case reflect.Pointer:
		return "*" + formatWithDepth(GetTypeInfo(info.ElementType), depth+1)
	case reflect.Slice:
		return "[]" + formatWithDepth(GetTypeInfo(info.ElementType), depth+1)
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", info.Type.Len(), formatWithDepth(GetTypeInfo(info.ElementType), depth+1))
	case reflect.Map:
		return "map[" + GetTypeInfo(info.KeyType).FormattedName() + "]" +
			formatWithDepth(GetTypeInfo(info.ElementType), depth+1)
	case reflect.Func:
		return info.String
	default:
		if info.PkgPath == "" || info.Name == "" {
			return info.String
		}
		return lastSegment(info.PkgPath) + "." + info.Name
	}
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}

	return path
}

// Clear drops every cached entry. Useful for testing.
func Clear() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}
