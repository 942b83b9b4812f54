// Package sessionkit tracks ephemeral, keyed session state shared by
// distributed application instances: mutually-exclusive creation, safe
// read/update/refresh while active, atomic transition into a separate
// finished state and atomically back, plus an independent distributed lock
// for call sites that need exclusivity across a whole read-modify-write
// sequence.
//
// # Package Organization
//
// Core components:
//
//   - core/sessionstore: the atomic dual-state session store (Redis Lua
//     protocol and in-process backing) and the Manager facade for locked
//     operations.
//   - core/lock: the lock coordinator with Redlock (redsync) and in-process
//     backings.
//   - core/cache: the generic TTL cache with eviction reasons backing the
//     in-process implementations.
//   - core/config: cached, type-safe environment configuration loading.
//   - core/logger: slog attribute helpers shared by the core packages.
//
// Utilities:
//
//   - pkg/serialqueue: the FIFO serializing executor that retrofits
//     atomicity onto the non-transactional local cache.
//
// Integrations:
//
//   - integration/database/redis: Redis client initialization with retries
//     and health checking.
//
// # Getting Documentation
//
// For detailed documentation on any package, use the go doc command:
//
//	go doc github.com/dmitrymomot/sessionkit/core/sessionstore
//	go doc -all github.com/dmitrymomot/sessionkit/core/lock
package sessionkit
