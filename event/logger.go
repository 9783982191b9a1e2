package event

// Logger defines interface used for logging container events.
type Logger interface {
	// LogEvent is called when a logging event is emitted.
	LogEvent(Event)
}

// NopLogger is a Logger that discards every event.
var NopLogger = nopLogger{}

type nopLogger struct{}

var _ Logger = nopLogger{}

func (nopLogger) LogEvent(Event) {}

// Multi fans events out to several loggers in order.
func Multi(loggers ...Logger) Logger {
	var filtered []Logger
	for _, l := range loggers {
		if l != nil && l != Logger(NopLogger) {
			filtered = append(filtered, l)
		}
	}

	switch len(filtered) {
	case 0:
		return NopLogger
	case 1:
		return filtered[0]
	}
	return multiLogger(filtered)
}

type multiLogger []Logger

func (ml multiLogger) LogEvent(e Event) {
	for _, l := range ml {
		l.LogEvent(e)
	}
}
