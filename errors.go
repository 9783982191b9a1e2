package ioc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/ioc/internal/graph"
	"github.com/junioryono/ioc/internal/typecache"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that should be wrapped in typed errors when returned.

var (
	// Resolution errors.
	ErrNotFound  = errors.New("no provider found")
	ErrNilToken  = errors.New("token cannot be nil")
	ErrMaxDepth  = errors.New("maximum resolution depth exceeded")
	ErrNilResult = errors.New("constructor returned nil")

	// Registration errors.
	ErrNotAClass       = errors.New("type is not a class")
	ErrInvalidHandler  = errors.New("invalid handler reference")
	ErrInvalidProvider = errors.New("invalid provider")

	// Lifecycle errors.
	ErrInjectorClosed = errors.New("injector has been closed")
)

var (
	_ error = NotFoundError{}
	_ error = RegistrationError{}
	_ error = InvalidAnnotationError{}
	_ error = HandlerError{}
	_ error = ConstructorError{}
	_ error = ConstructorPanicError{}
	_ error = MaxDepthError{}
	_ error = TypeMismatchError{}
	_ error = ModuleError{}
	_ error = DisposalError{}
	_ error = (*CircularDependencyError)(nil)
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// NotFoundError indicates a required dependency has no provider.
type NotFoundError struct {
	Key Key
	// Requester is the class on whose behalf the lookup ran, if any.
	Requester reflect.Type
}

func (e NotFoundError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("no provider for %s", e.Key))
	if e.Requester != nil {
		b.WriteString(fmt.Sprintf(" (required by %s)", formatType(e.Requester)))
	}

	if class, ok := e.Key.Class(); ok && e.Key.Alias() == "" {
		b.WriteString(fmt.Sprintf("\n\nRegister %s or resolve it with Regify set.", formatType(class)))
	}

	return b.String()
}

func (e NotFoundError) Unwrap() error {
	return ErrNotFound
}

// CircularDependencyError describes a class that was re-entered while it was
// still being constructed. Path lists the classes on the resolution stack.
type CircularDependencyError = graph.CircularDependencyError

// MaxDepthError indicates a resolution nested deeper than Config.MaxResolveDepth.
type MaxDepthError struct {
	Type  reflect.Type
	Depth int
}

func (e MaxDepthError) Error() string {
	return fmt.Sprintf("resolving %s: maximum resolution depth %d exceeded", formatType(e.Type), e.Depth)
}

func (e MaxDepthError) Unwrap() error {
	return ErrMaxDepth
}

// RegistrationError wraps errors during class or provider registration.
type RegistrationError struct {
	Type      reflect.Type
	Key       Key
	Operation string // "register", "bind", "design", etc.
	Cause     error
}

func (e RegistrationError) Error() string {
	target := formatType(e.Type)
	if e.Type == nil {
		target = e.Key.String()
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, target, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// InvalidAnnotationError indicates an annotation is missing metadata it
// requires or references a member the class does not have.
type InvalidAnnotationError struct {
	Type       reflect.Type
	Annotation string
	Member     string
	Cause      error
}

func (e InvalidAnnotationError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("invalid %s annotation on %s.%s: %v", e.Annotation, formatType(e.Type), e.Member, e.Cause)
	}
	return fmt.Sprintf("invalid %s annotation on %s: %v", e.Annotation, formatType(e.Type), e.Cause)
}

func (e InvalidAnnotationError) Unwrap() error {
	return e.Cause
}

// HandlerError wraps an error returned by an annotation handler.
type HandlerError struct {
	Type       reflect.Type
	Annotation string
	Stage      Stage
	Phase      Phase
	Cause      error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf("%s handler for %s failed during %s/%s: %v",
		e.Annotation, formatType(e.Type), e.Stage, e.Phase, e.Cause)
}

func (e HandlerError) Unwrap() error {
	return e.Cause
}

// ConstructorError wraps an error returned by a class constructor.
type ConstructorError struct {
	Type  reflect.Type
	Cause error
}

func (e ConstructorError) Error() string {
	return fmt.Sprintf("failed to construct %s: %v", formatType(e.Type), e.Cause)
}

func (e ConstructorError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor panicked during invocation.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Type  reflect.Type
	Panic any
	Stack []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor of %s panicked: %v\n", formatType(e.Type), e.Panic))

	b.WriteString("\nConstructors should only wire dependencies.\n")
	b.WriteString("Move work that can fail into an OnInit method and return an error instead.\n")

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// TypeMismatchError indicates a resolved value cannot be assigned where it
// was requested.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "property Widget.Config", "parameter 0 of Dog", etc.
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates errors raised while closing an injector.
type DisposalError struct {
	InjectorID string
	Errors     []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("injector %s disposal failed: %v", e.InjectorID, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("injector %s disposal failed with %d errors:", e.InjectorID, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsNotFound reports whether err was caused by a missing provider.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCircularDependency reports whether err was caused by a dependency cycle.
func IsCircularDependency(err error) bool {
	var circErr *CircularDependencyError
	return errors.As(err, &circErr)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	return typecache.Format(t)
}
