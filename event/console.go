package event

import (
	"fmt"
	"io"
	"strings"
)

// ConsoleLogger is a container event logger that writes human-readable
// messages to W.
//
// Use this during development.
type ConsoleLogger struct {
	W io.Writer
}

var _ Logger = (*ConsoleLogger)(nil)

func (l *ConsoleLogger) logf(msg string, args ...any) {
	fmt.Fprintf(l.W, "[ioc] "+msg+"\n", args...)
}

// LogEvent logs the given event to the writer.
func (l *ConsoleLogger) LogEvent(event Event) {
	switch e := event.(type) {
	case *Registered:
		if len(e.Annotations) > 0 {
			l.logf("REGISTER\t%s [%s] in %s", e.TypeName, strings.Join(e.Annotations, ", "), e.Runtime)
		} else {
			l.logf("REGISTER\t%s in %s", e.TypeName, e.Runtime)
		}
	case *RegisterFailed:
		l.logf("ERROR\t\tFailed to register %s: %v", e.TypeName, e.Err)
	case *Bound:
		if e.TypeName != "" {
			l.logf("BIND\t\t%s <= %s", e.Key, e.TypeName)
		} else {
			l.logf("BIND\t\t%s", e.Key)
		}
	case *Unregistered:
		l.logf("UNBIND\t\t%s", e.Key)
	case *Constructed:
		switch {
		case e.Err != nil:
			l.logf("ERROR\t\tFailed to construct %s: %v", e.TypeName, e.Err)
		case e.Singleton:
			l.logf("NEW\t\t%s (singleton) in %s", e.TypeName, e.Runtime)
		default:
			l.logf("NEW\t\t%s in %s", e.TypeName, e.Runtime)
		}
	case *Resolved:
		if e.Target != "" {
			l.logf("RESOLVE\t%s for %s", e.Key, e.Target)
		} else {
			l.logf("RESOLVE\t%s", e.Key)
		}
	case *ResolveFailed:
		if e.Target != "" {
			l.logf("ERROR\t\tFailed to resolve %s for %s: %v", e.Key, e.Target, e.Err)
		} else {
			l.logf("ERROR\t\tFailed to resolve %s: %v", e.Key, e.Err)
		}
	case *HookExecuted:
		if e.Err != nil {
			l.logf("HOOK %s\t%s failed in %s: %v", e.Hook, e.TypeName, e.Runtime, e.Err)
		} else {
			l.logf("HOOK %s\t%s ran successfully in %s", e.Hook, e.TypeName, e.Runtime)
		}
	case *AutoRan:
		if e.Err != nil {
			l.logf("AUTORUN\t%s.%s failed: %v", e.TypeName, e.Method, e.Err)
		} else {
			l.logf("AUTORUN\t%s.%s", e.TypeName, e.Method)
		}
	case *ModuleLoaded:
		if e.Err != nil {
			l.logf("ERROR\t\tFailed to load module %q: %v", e.Name, e.Err)
		} else {
			l.logf("MODULE\t%q (%d types)", e.Name, len(e.TypeNames))
		}
	case *Closed:
		if e.Err != nil {
			l.logf("ERROR\t\tFailed to close injector %s cleanly: %v", e.InjectorID, e.Err)
		} else {
			l.logf("CLOSED\t%s", e.InjectorID)
		}
	}
}
