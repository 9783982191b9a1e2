package event

import (
	"go.uber.org/zap"
)

// ZapLogger is a container event logger that logs events to Zap.
type ZapLogger struct {
	Logger *zap.Logger
}

var _ Logger = (*ZapLogger)(nil)

// LogEvent logs the given event to the provided Zap logger.
func (l *ZapLogger) LogEvent(event Event) {
	switch e := event.(type) {
	case *Registered:
		l.Logger.Info("registered",
			zap.String("type", e.TypeName),
			zap.String("injector", e.InjectorID),
			zap.Strings("annotations", e.Annotations),
			zap.String("runtime", e.Runtime.String()),
		)
	case *RegisterFailed:
		l.Logger.Error("register failed",
			zap.String("type", e.TypeName),
			zap.Error(e.Err),
		)
	case *Bound:
		l.Logger.Debug("bound",
			zap.String("key", e.Key),
			zap.String("type", e.TypeName),
			zap.String("injector", e.InjectorID),
		)
	case *Unregistered:
		l.Logger.Info("unregistered",
			zap.String("key", e.Key),
			zap.String("injector", e.InjectorID),
		)
	case *Constructed:
		if e.Err != nil {
			l.Logger.Error("construct failed",
				zap.String("type", e.TypeName),
				zap.Error(e.Err),
			)
		} else {
			l.Logger.Debug("constructed",
				zap.String("type", e.TypeName),
				zap.Bool("singleton", e.Singleton),
				zap.String("runtime", e.Runtime.String()),
			)
		}
	case *Resolved:
		l.Logger.Debug("resolved",
			zap.String("key", e.Key),
			maybeString("target", e.Target),
		)
	case *ResolveFailed:
		l.Logger.Error("resolve failed",
			zap.String("key", e.Key),
			maybeString("target", e.Target),
			zap.Error(e.Err),
		)
	case *HookExecuted:
		if e.Err != nil {
			l.Logger.Error("hook execute failed",
				zap.String("hook", e.Hook),
				zap.String("type", e.TypeName),
				zap.Error(e.Err),
			)
		} else {
			l.Logger.Info("hook executed",
				zap.String("hook", e.Hook),
				zap.String("type", e.TypeName),
				zap.String("runtime", e.Runtime.String()),
			)
		}
	case *AutoRan:
		if e.Err != nil {
			l.Logger.Error("autorun failed",
				zap.String("type", e.TypeName),
				zap.String("method", e.Method),
				zap.Int("order", e.Order),
				zap.Error(e.Err),
			)
		} else {
			l.Logger.Info("autorun",
				zap.String("type", e.TypeName),
				zap.String("method", e.Method),
				zap.Int("order", e.Order),
			)
		}
	case *ModuleLoaded:
		if e.Err != nil {
			l.Logger.Error("module load failed",
				zap.String("module", e.Name),
				zap.Error(e.Err),
			)
		} else {
			l.Logger.Info("module loaded",
				zap.String("module", e.Name),
				zap.Strings("types", e.TypeNames),
			)
		}
	case *Closed:
		if e.Err != nil {
			l.Logger.Error("close failed",
				zap.String("injector", e.InjectorID),
				zap.Error(e.Err),
			)
		} else {
			l.Logger.Info("closed", zap.String("injector", e.InjectorID))
		}
	}
}

func maybeString(key, value string) zap.Field {
	if value == "" {
		return zap.Skip()
	}
	return zap.String(key, value)
}
