package logger

import (
	"log/slog"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety, so call
// sites never need explicit nil checks before logging an error.

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed creates a duration attribute measured from start until now.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("duration", time.Since(start))
}

// Component identifies the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Kind identifies the session namespace an operation targets.
func Kind(kind string) slog.Attr {
	return slog.String("kind", kind)
}

// Resource identifies the lock target an operation contends for.
func Resource(resource string) slog.Attr {
	return slog.String("resource", resource)
}

// Count creates a counter attribute with a custom key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Attempt records which retry of a bounded loop produced the record.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}
