package lock

import (
	"io"
	"log/slog"
	"time"
)

// Config holds lock coordinator configuration, loadable from the environment
// via core/config.
type Config struct {
	// KeyPrefix namespaces lock resources in the distributed backing.
	KeyPrefix string `env:"LOCK_KEY_PREFIX" envDefault:"sessionkit:lock:"`
	// SweepInterval is how often the local backing sweeps expired entries so
	// eviction callbacks fire without waiting for the holder to ask.
	SweepInterval time.Duration `env:"LOCK_SWEEP_INTERVAL" envDefault:"1s"`
}

type settings struct {
	prefix        string
	sweepInterval time.Duration
	logger        *slog.Logger
}

func defaultSettings() settings {
	return settings{
		prefix:        "sessionkit:lock:",
		sweepInterval: time.Second,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option is a functional option for configuring a coordinator.
type Option func(*settings)

// WithKeyPrefix sets the namespace prepended to lock resources by the
// distributed backing.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithSweepInterval sets how often the local backing sweeps expired lock
// entries. Only the local backing uses this.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *settings) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithLogger sets the logger for internal diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfig applies a Config loaded from the environment.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		WithKeyPrefix(cfg.KeyPrefix)(s)
		WithSweepInterval(cfg.SweepInterval)(s)
	}
}
