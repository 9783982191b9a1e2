package ioc

import (
	"time"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/event"
)

// Option configures a Container.
type Option interface {
	applyOption(*options)
}

// options holds container configuration.
type options struct {
	config  Config
	logger  event.Logger
	clock   func() time.Time
	actions *Actions
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) applyOption(o *options) {
	f(o)
}

// WithConfig sets the container configuration.
func WithConfig(cfg Config) Option {
	return optionFunc(func(o *options) {
		o.config = cfg
	})
}

// WithLogger sets the event logger. It takes precedence over
// Config.LogFormat.
func WithLogger(logger event.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = logger
	})
}

// WithZap logs container events to logger.
func WithZap(logger *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if logger != nil {
			o.logger = &event.ZapLogger{Logger: logger}
		}
	})
}

// WithClock sets the clock used for TTL expiry.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.clock = now
	})
}

// WithActions shares an annotation handler registry between containers.
func WithActions(actions *Actions) Option {
	return optionFunc(func(o *options) {
		o.actions = actions
	})
}

// RegisterOption configures RegisterType.
type RegisterOption interface {
	applyRegisterOption(*registerOptions)
}

// registerOptions holds type registration configuration.
type registerOptions struct {
	provideAs []Token
	alias     string
	singleton *bool
}

// registerOptionFunc adapts a function to RegisterOption.
type registerOptionFunc func(*registerOptions)

func (f registerOptionFunc) applyRegisterOption(o *registerOptions) {
	f(o)
}

// ProvideAs additionally binds the class under tokens.
func ProvideAs(tokens ...Token) RegisterOption {
	return registerOptionFunc(func(o *registerOptions) {
		o.provideAs = append(o.provideAs, tokens...)
	})
}

// WithAlias qualifies every token the class is bound under with alias.
func WithAlias(alias string) RegisterOption {
	return registerOptionFunc(func(o *registerOptions) {
		o.alias = alias
	})
}

// AsSingleton caches the instance in the registering injector regardless of
// the class annotations.
func AsSingleton() RegisterOption {
	return registerOptionFunc(func(o *registerOptions) {
		v := true
		o.singleton = &v
	})
}

// AsTransient constructs a new instance for every lookup regardless of the
// class annotations.
func AsTransient() RegisterOption {
	return registerOptionFunc(func(o *registerOptions) {
		v := false
		o.singleton = &v
	})
}
