package ioc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/junioryono/ioc/event"
)

// Log formats understood by Config.LogFormat.
const (
	LogFormatNop     = "nop"
	LogFormatConsole = "console"
	LogFormatZap     = "zap"
)

// Environment variables read by LoadConfig.
const (
	EnvLogFormat        = "IOC_LOG_FORMAT"
	EnvDevelopment      = "IOC_DEVELOPMENT"
	EnvMaxResolveDepth  = "IOC_MAX_RESOLVE_DEPTH"
	EnvDefaultTTL       = "IOC_DEFAULT_TTL"
	EnvStrictProperties = "IOC_STRICT_PROPERTIES"
)

// Config holds the container settings.
type Config struct {
	// LogFormat selects the event logger when none is given with WithLogger:
	// "nop", "console" (stderr) or "zap".
	LogFormat string

	// Development switches the zap logger to its development preset.
	Development bool

	// MaxResolveDepth caps the number of classes under construction in one
	// resolution. Zero disables the limit.
	MaxResolveDepth int

	// DefaultTTL is used by TTL annotations declared with a non-positive
	// duration.
	DefaultTTL time.Duration

	// StrictProperties fails construction when a non-optional injected
	// property has no provider. By default the property is left unset.
	StrictProperties bool
}

// DefaultConfig returns the settings used by New without WithConfig.
func DefaultConfig() Config {
	return Config{
		LogFormat:       LogFormatNop,
		MaxResolveDepth: 128,
		DefaultTTL:      time.Minute,
	}
}

// LoadConfig reads the given dotenv files, or .env when present, then applies
// IOC_* environment variables on top of DefaultConfig. Process environment
// wins over file values.
func LoadConfig(files ...string) (Config, error) {
	values := map[string]string{}

	if len(files) > 0 {
		read, err := godotenv.Read(files...)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		values = read
	} else if read, err := godotenv.Read(".env"); err == nil {
		values = read
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := values[key]
		return v, ok && v != ""
	}

	cfg := DefaultConfig()

	if v, ok := lookup(EnvLogFormat); ok {
		cfg.LogFormat = v
	}

	if v, ok := lookup(EnvDevelopment); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvDevelopment, err)
		}
		cfg.Development = b
	}

	if v, ok := lookup(EnvMaxResolveDepth); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvMaxResolveDepth, err)
		}
		cfg.MaxResolveDepth = n
	}

	if v, ok := lookup(EnvDefaultTTL); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvDefaultTTL, err)
		}
		cfg.DefaultTTL = d
	}

	if v, ok := lookup(EnvStrictProperties); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvStrictProperties, err)
		}
		cfg.StrictProperties = b
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings.
func (cfg Config) Validate() error {
	switch cfg.LogFormat {
	case "", LogFormatNop, LogFormatConsole, LogFormatZap:
	default:
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	if cfg.MaxResolveDepth < 0 {
		return fmt.Errorf("max resolve depth must not be negative, got %d", cfg.MaxResolveDepth)
	}

	if cfg.DefaultTTL < 0 {
		return fmt.Errorf("default TTL must not be negative, got %s", cfg.DefaultTTL)
	}

	return nil
}

func (cfg Config) newLogger() (event.Logger, error) {
	switch cfg.LogFormat {
	case LogFormatConsole:
		return &event.ConsoleLogger{W: os.Stderr}, nil
	case LogFormatZap:
		var (
			logger *zap.Logger
			err    error
		)
		if cfg.Development {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return nil, fmt.Errorf("create zap logger: %w", err)
		}
		return &event.ZapLogger{Logger: logger}, nil
	default:
		return event.NopLogger, nil
	}
}
