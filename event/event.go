package event

import (
	"time"
)

// Event defines an event emitted by the container pipelines.
type Event interface {
	event() // Only this package can implement this interface.
}

func (*Registered) event()     {}
func (*RegisterFailed) event() {}
func (*Bound) event()          {}
func (*Unregistered) event()   {}
func (*Constructed) event()    {}
func (*Resolved) event()       {}
func (*ResolveFailed) event()  {}
func (*HookExecuted) event()   {}
func (*AutoRan) event()        {}
func (*ModuleLoaded) event()   {}
func (*Closed) event()         {}

// Registered is emitted when the design pipeline has processed a class.
type Registered struct {
	// TypeName is the class that was registered.
	TypeName string
	// InjectorID is the injector that owns the registration.
	InjectorID string
	// Annotations lists the annotation names declared on the class.
	Annotations []string
	Runtime     time.Duration
}

// RegisterFailed is emitted when the design pipeline aborts for a class.
type RegisterFailed struct {
	TypeName string
	Err      error
}

// Bound is emitted when a provider is bound under a key.
type Bound struct {
	Key        string
	TypeName   string
	InjectorID string
}

// Unregistered is emitted when a binding is removed.
type Unregistered struct {
	Key        string
	InjectorID string
}

// Constructed is emitted after the runtime pipeline built an instance.
type Constructed struct {
	TypeName  string
	Singleton bool
	Runtime   time.Duration
	Err       error
}

// Resolved is emitted when a top level resolution finds a provider.
type Resolved struct {
	Key    string
	Target string
}

// ResolveFailed is emitted when a resolution fails with an error.
type ResolveFailed struct {
	Key    string
	Target string
	Err    error
}

// HookExecuted is emitted after a lifecycle hook ran on an instance.
type HookExecuted struct {
	TypeName string
	// Hook is the lifecycle method, one of OnInit, AfterInit, OnDestroy or Close.
	Hook    string
	Runtime time.Duration
	Err     error
}

// AutoRan is emitted after an auto-run method ran at the end of registration.
type AutoRan struct {
	TypeName string
	Method   string
	Order    int
	Err      error
}

// ModuleLoaded is emitted after a module's types were registered.
type ModuleLoaded struct {
	Name      string
	TypeNames []string
	Err       error
}

// Closed is emitted when an injector is closed.
type Closed struct {
	InjectorID string
	Err        error
}
