package ioc

import (
	"sync"
	"time"
)

// Initializer is implemented by classes that finish initialization after
// their properties were injected.
type Initializer interface {
	OnInit() error
}

// PostInitializer is implemented by classes that run after OnInit and the
// annotation handlers.
type PostInitializer interface {
	AfterInit() error
}

// Destroyer is implemented by classes that release resources when their
// injector closes.
type Destroyer interface {
	OnDestroy() error
}

// Disposable allows disposal when the injector that built the instance
// closes.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// lifecycle tracks the disposable instances of an injector.
type lifecycle struct {
	mu        sync.Mutex
	instances []any
}

func newLifecycle() *lifecycle {
	return &lifecycle{}
}

// track records instance when it implements Destroyer or Disposable.
func (l *lifecycle) track(instance any) {
	switch instance.(type) {
	case Destroyer, Disposable:
	default:
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.instances = append(l.instances, instance)
}

// dispose runs the destroy hooks in reverse order (LIFO) and reports every
// hook through report.
func (l *lifecycle) dispose(report func(instance any, hook string, err error, runtime time.Duration)) {
	l.mu.Lock()
	instances := l.instances
	l.instances = nil
	l.mu.Unlock()

	for i := len(instances) - 1; i >= 0; i-- {
		destroy(instances[i], report)
	}
}

// destroy runs OnDestroy then Close on instance where implemented.
func destroy(instance any, report func(instance any, hook string, err error, runtime time.Duration)) {
	if d, ok := instance.(Destroyer); ok {
		start := time.Now()
		err := d.OnDestroy()
		report(instance, "OnDestroy", err, time.Since(start))
	}

	if d, ok := instance.(Disposable); ok {
		start := time.Now()
		err := d.Close()
		report(instance, "Close", err, time.Since(start))
	}
}

func (l *lifecycle) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.instances)
}
