// Package event defines the events emitted by the ioc pipelines and the
// loggers that record them.
//
// # Changing the Logger
//
// By default containers use [NopLogger]. Pass ioc.WithLogger to change it:
//
//	c := ioc.New(ioc.WithLogger(&event.ConsoleLogger{W: os.Stderr}))
//
// If your application already uses Zap, use the [ZapLogger]:
//
//	c := ioc.New(ioc.WithLogger(&event.ZapLogger{Logger: log}))
//
// # Implementing a Custom Logger
//
// [Event] is a union type of every event the container can emit. Implement
// [Logger] and use a type switch to handle the events you care about.
package event
