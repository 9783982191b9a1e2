package testutil

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/junioryono/ioc"
)

// Common test errors
var (
	ErrTest            = errors.New("test error")
	ErrIntentional     = errors.New("intentional error")
	ErrConstructor     = errors.New("constructor error")
	ErrDisposal        = errors.New("disposal error")
	ErrAlreadyDisposed = errors.New("already disposed")
	ErrAlreadyClosed   = errors.New("already closed")
)

func init() {
	ioc.Declare[TestLoggerImpl](
		ioc.Singleton(),
		ioc.ProvidedAs(ioc.TypeOf[TestLogger]()),
	)

	ioc.Declare[TestDatabaseImpl](
		ioc.Singleton(),
		ioc.Constructor(NewTestDatabase),
		ioc.ProvidedAs(ioc.TypeOf[TestDatabase]()),
	)

	ioc.Declare[TestCacheImpl](
		ioc.Constructor(NewTestCache),
		ioc.ProvidedAs(ioc.TypeOf[TestCache]()),
	)

	ioc.Declare[TestServiceWithDeps](
		ioc.Constructor(NewTestServiceWithDeps),
	)

	ioc.Declare[TestService](
		ioc.Constructor(NewTestService),
	)

	ioc.Declare[TestDisposable](
		ioc.Constructor(NewTestDisposable),
	)
}

// TestService is a basic test service
type TestService struct {
	ID        string
	CreatedAt time.Time
	Data      string
}

// NewTestService creates a new test service
func NewTestService() *TestService {
	return &TestService{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Data:      "test",
	}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	GetLogs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	logs []string
	mu   sync.Mutex
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) GetLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.logs))
	copy(result, l.logs)
	return result
}

// TestDatabase is a test database interface
type TestDatabase interface {
	Query(sql string) string
	Close() error
}

// TestDatabaseImpl implements TestDatabase
type TestDatabaseImpl struct {
	name    string
	closed  bool
	closeMu sync.Mutex
}

func NewTestDatabase() *TestDatabaseImpl {
	return &TestDatabaseImpl{name: "testdb"}
}

func (d *TestDatabaseImpl) Query(sql string) string {
	return fmt.Sprintf("%s: %s", d.name, sql)
}

func (d *TestDatabaseImpl) Close() error {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()

	if d.closed {
		return ErrAlreadyClosed
	}
	d.closed = true
	return nil
}

func (d *TestDatabaseImpl) IsClosed() bool {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	return d.closed
}

// TestCache is a test cache interface
type TestCache interface {
	Get(key string) (string, bool)
	Set(key string, value string)
}

// TestCacheImpl implements TestCache
type TestCacheImpl struct {
	data map[string]string
	mu   sync.RWMutex
}

func NewTestCache() *TestCacheImpl {
	return &TestCacheImpl{data: make(map[string]string)}
}

func (c *TestCacheImpl) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[key]
	return val, ok
}

func (c *TestCacheImpl) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// TestServiceWithDeps is a service with dependencies for testing
type TestServiceWithDeps struct {
	Logger   TestLogger
	Database TestDatabase
	Cache    TestCache
	ID       string
}

func NewTestServiceWithDeps(logger TestLogger, db TestDatabase, cache TestCache) *TestServiceWithDeps {
	return &TestServiceWithDeps{
		Logger:   logger,
		Database: db,
		Cache:    cache,
		ID:       uuid.NewString(),
	}
}

// TestDisposable records its disposal.
type TestDisposable struct {
	ID       string
	disposed bool
	mu       sync.Mutex
}

func NewTestDisposable() *TestDisposable {
	return &TestDisposable{ID: uuid.NewString()}
}

func (s *TestDisposable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}
	s.disposed = true
	return nil
}

func (s *TestDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// CircularServiceA and CircularServiceB inject each other.
type CircularServiceA struct {
	B *CircularServiceB `inject:""`
}

type CircularServiceB struct {
	A *CircularServiceA `inject:""`
}

// Counter counts constructions.
type Counter struct {
	n atomic.Int64
}

// Next increments the counter and returns the new value.
func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.n.Load()
}
