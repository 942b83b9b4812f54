package sessionstore

import (
	"io"
	"log/slog"
)

// Config holds session store configuration, loadable from the environment
// via core/config.
type Config struct {
	// KeyPrefix namespaces every storage key: {prefix}:{kind}:{key}.
	KeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"sessionkit"`
	// ScriptRetryAttempts bounds the EVALSHA script-cache-miss fallback.
	ScriptRetryAttempts int `env:"SESSION_SCRIPT_RETRY_ATTEMPTS" envDefault:"3"`
}

type settings struct {
	prefix        string
	scriptRetries int
	logger        *slog.Logger
}

func defaultSettings() settings {
	return settings{
		prefix:        "sessionkit",
		scriptRetries: 3,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option is a functional option for configuring a store.
type Option func(*settings)

// WithKeyPrefix sets the storage key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithScriptRetryAttempts bounds how many times a script invocation may fall
// back from EVALSHA to a full script load before the operation fails with
// ErrScriptRetryExhausted. Only the redis backing uses this.
func WithScriptRetryAttempts(attempts int) Option {
	return func(s *settings) {
		if attempts > 0 {
			s.scriptRetries = attempts
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
		WithScriptRetryAttempts(cfg.ScriptRetryAttempts)(s)
	}
}
