package ioc

import (
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/internal/typecache"
)

// Token identifies a dependency. A token is one of:
//   - a reflect.Type of a class (struct or pointer to struct) or interface
//   - a string name
//   - an *InjectToken created with NewToken
//   - a Qualified token built with Alias
//   - a Key, which is returned unchanged
type Token = any

// InjectToken is a symbolic token. Two tokens created with the same
// description are still distinct.
type InjectToken struct {
	desc string
}

// NewToken creates a new symbolic token.
//
// Example:
//
//	var ConfigToken = ioc.NewToken("config")
//	container.RegisterValue(ConfigToken, cfg)
func NewToken(desc string) *InjectToken {
	return &InjectToken{desc: desc}
}

// String returns the token description.
func (t *InjectToken) String() string {
	if t == nil {
		return "InjectToken(<nil>)"
	}
	return "InjectToken(" + t.desc + ")"
}

// Qualified is a token qualified by an alias, so the same base token can be
// bound several times.
type Qualified struct {
	Token Token
	Alias string
}

// Alias qualifies token with alias.
func Alias(token Token, alias string) Qualified {
	return Qualified{Token: token, Alias: alias}
}

// Key is the canonical lookup key derived from a Token. Keys are comparable
// and are used as map keys everywhere in the container.
type Key struct {
	typ   reflect.Type
	name  string
	sym   *InjectToken
	alias string

	// target is set for reference keys: the class the binding is scoped to.
	target reflect.Type
}

// KeyOf normalizes token, optionally qualified by alias, into its canonical
// Key. KeyOf is pure and total: unsupported token values map to a name key
// built from their type and value.
func KeyOf(token Token, alias ...string) Key {
	var key Key

	switch t := token.(type) {
	case nil:
		return Key{}
	case Key:
		key = t
	case Qualified:
		key = KeyOf(t.Token, t.Alias)
	case *Qualified:
		if t == nil {
			return Key{}
		}
		key = KeyOf(t.Token, t.Alias)
	case reflect.Type:
		key.typ = normalizeType(t)
	case string:
		key.name = t
	case *InjectToken:
		key.sym = t
	default:
		key.name = fmt.Sprintf("%T:%v", token, token)
	}

	for _, a := range alias {
		if a != "" {
			key.alias = a
		}
	}

	return key
}

// RefKey returns the reference key scoping service to the target class.
// Target may be a class token or an instance of the class.
func RefKey(service Token, target Token) Key {
	key := KeyOf(service)
	key.target = targetClass(target)
	return key
}

// TypeOf returns the token type for T. For struct and pointer-to-struct types
// this is the class type.
func TypeOf[T any]() reflect.Type {
	return normalizeType(reflect.TypeOf((*T)(nil)).Elem())
}

// normalizeType maps *T and T to the struct type T; other types are returned
// unchanged.
func normalizeType(t reflect.Type) reflect.Type {
	if class, ok := typecache.ClassOf(t); ok {
		return class
	}
	return t
}

// targetClass resolves a target given as a class token or an instance.
func targetClass(target Token) reflect.Type {
	switch t := target.(type) {
	case nil:
		return nil
	case reflect.Type:
		return normalizeType(t)
	case Key:
		return t.typ
	default:
		return normalizeType(reflect.TypeOf(target))
	}
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Type returns the type behind a type token, or nil.
func (k Key) Type() reflect.Type {
	return k.typ
}

// Class returns the class type when the key names a struct type.
func (k Key) Class() (reflect.Type, bool) {
	if k.typ != nil && k.typ.Kind() == reflect.Struct {
		return k.typ, true
	}
	return nil, false
}

// Name returns the name of a string token.
func (k Key) Name() string {
	return k.name
}

// Alias returns the alias qualifier, or "".
func (k Key) Alias() string {
	return k.alias
}

// IsRef reports whether k is a reference key.
func (k Key) IsRef() bool {
	return k.target != nil
}

// Target returns the class a reference key is scoped to.
func (k Key) Target() reflect.Type {
	return k.target
}

// Base returns k without its alias and reference target.
func (k Key) Base() Key {
	return Key{typ: k.typ, name: k.name, sym: k.sym}
}

// Service returns k without its reference target.
func (k Key) Service() Key {
	k.target = nil
	return k
}

// String returns a readable form of the key for errors and logs.
func (k Key) String() string {
	var s string
	switch {
	case k.typ != nil:
		s = typecache.Format(k.typ)
	case k.sym != nil:
		s = k.sym.String()
	case k.name != "":
		s = fmt.Sprintf("%q", k.name)
	default:
		s = "<nil>"
	}

	if k.alias != "" {
		s += "[" + k.alias + "]"
	}

	if k.target != nil {
		s += "@" + typecache.Format(k.target)
	}

	return s
}
