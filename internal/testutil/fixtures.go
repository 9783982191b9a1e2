package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc"
	"github.com/junioryono/ioc/event"
)

// InfrastructureModule registers the logger, database and cache fixtures.
var InfrastructureModule = ioc.NewModule("infrastructure",
	ioc.TypeOf[TestLoggerImpl](),
	ioc.TypeOf[TestDatabaseImpl](),
	ioc.TypeOf[TestCacheImpl](),
)

// ServiceModule registers TestServiceWithDeps on top of InfrastructureModule.
var ServiceModule = ioc.NewModule("service",
	InfrastructureModule,
	ioc.TypeOf[TestServiceWithDeps](),
)

// SetupBasicServices registers the infrastructure fixtures in c
func SetupBasicServices(t *testing.T, c *ioc.Container) {
	t.Helper()

	_, err := c.Use(InfrastructureModule)
	require.NoError(t, err)
}

// SetupCompleteServices registers all fixtures including dependent ones
func SetupCompleteServices(t *testing.T, c *ioc.Container) {
	t.Helper()

	_, err := c.Use(ServiceModule)
	require.NoError(t, err)
}

// RecordingLogger is an event.Logger that keeps every event.
type RecordingLogger struct {
	mu     sync.Mutex
	events []event.Event
}

var _ event.Logger = (*RecordingLogger)(nil)

// LogEvent records e.
func (l *RecordingLogger) LogEvent(e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns the recorded events in order.
func (l *RecordingLogger) Events() []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]event.Event(nil), l.events...)
}

// Reset drops the recorded events.
func (l *RecordingLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// EventsOf returns the recorded events of type T.
func EventsOf[T event.Event](l *RecordingLogger) []T {
	var result []T
	for _, e := range l.Events() {
		if v, ok := e.(T); ok {
			result = append(result, v)
		}
	}
	return result
}

// TestScenario represents a test scenario configuration
type TestScenario struct {
	Name     string
	Setup    func(t *testing.T) *ioc.Container
	Validate func(t *testing.T, c *ioc.Container)
}

// RunTestScenarios executes a set of test scenarios
func RunTestScenarios(t *testing.T, scenarios []TestScenario) {
	t.Helper()

	for _, scenario := range scenarios {
		scenario := scenario
		t.Run(scenario.Name, func(t *testing.T) {
			t.Parallel()

			c := scenario.Setup(t)
			scenario.Validate(t, c)
		})
	}
}

// ErrorTestCase represents a test case for error scenarios
type ErrorTestCase struct {
	Name      string
	Setup     func(t *testing.T) *ioc.Container
	Action    func(c *ioc.Container) error
	WantError error
	CheckErr  func(t *testing.T, err error)
}

// RunErrorTestCases executes error test cases
func RunErrorTestCases(t *testing.T, cases []ErrorTestCase) {
	t.Helper()

	for _, tc := range cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			c := tc.Setup(t)
			err := tc.Action(c)

			if tc.WantError != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tc.WantError)
			}

			if tc.CheckErr != nil {
				tc.CheckErr(t, err)
			}
		})
	}
}
