package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrymomot/sessionkit/core/cache"
	"github.com/dmitrymomot/sessionkit/pkg/serialqueue"
)

// memoryRecord mirrors the remote wire record: expiration components plus
// the serialized payload. Keeping the JSON boundary identical to the redis
// backing keeps fault modes identical too.
type memoryRecord struct {
	absexp  int64
	sldexp  int64
	payload []byte
}

// MemoryStore implements Store against a local cache. Atomicity comes from
// total serialization: every read-check-write runs as one unit on the shared
// serial queue, which must be the only path mutating the cache (the local
// lock backing shares the same pair).
type MemoryStore[Data any] struct {
	queue *serialqueue.Queue
	cache *cache.TTLCache[string, any]
	kind  string

	prefix string
}

// NewMemoryStore creates an in-process store for the given session kind over
// a shared queue and cache.
func NewMemoryStore[Data any](queue *serialqueue.Queue, c *cache.TTLCache[string, any], kind string, opts ...Option) *MemoryStore[Data] {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &MemoryStore[Data]{
		queue:  queue,
		cache:  c,
		kind:   kind,
		prefix: s.prefix,
	}
}

// Kind returns the session kind discriminator.
func (s *MemoryStore[Data]) Kind() string { return s.kind }

func (s *MemoryStore[Data]) regularKey(key string) string {
	return regularKey(s.prefix, s.kind, key)
}

func (s *MemoryStore[Data]) evictedKey(key string) string {
	return evictedKey(s.prefix, s.kind, key)
}

// Add implements Store.
func (s *MemoryStore[Data]) Add(ctx context.Context, key string, data Data, opt Options) (*Session[Data], error) {
	now := time.Now()
	opt.validate(now)

	sess := &Session[Data]{
		Key:                key,
		Version:            1,
		StartedAt:          now,
		ProviderKey:        s.regularKey(key),
		EvictedProviderKey: s.evictedKey(key),
		Data:               data,
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}

	var existing *Session[Data]
	err = s.queue.Do(ctx, func(context.Context) error {
		if rec, ok := s.record(sess.ProviderKey); ok {
			found, err := unmarshalSession[Data](string(rec.payload))
			if err != nil {
				return err
			}
			existing = found
			return ErrSessionInProgress
		}
		if s.has(sess.EvictedProviderKey) {
			return ErrSessionFinished
		}
		s.put(sess.ProviderKey, payload, opt, now)
		return nil
	})
	if errors.Is(err, ErrSessionInProgress) {
		return existing, err
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Get implements Store.
func (s *MemoryStore[Data]) Get(ctx context.Context, key string) (*Session[Data], error) {
	return s.get(ctx, s.regularKey(key), s.evictedKey(key), ErrSessionFinished)
}

// GetEvicted implements Store.
func (s *MemoryStore[Data]) GetEvicted(ctx context.Context, key string) (*Session[Data], error) {
	return s.get(ctx, s.evictedKey(key), s.regularKey(key), ErrSessionRestored)
}

func (s *MemoryStore[Data]) get(ctx context.Context, primary, other string, conflict error) (*Session[Data], error) {
	var sess *Session[Data]
	err := s.queue.Do(ctx, func(context.Context) error {
		rec, ok := s.record(primary)
		if !ok {
			if s.has(other) {
				return conflict
			}
			return ErrNotFound
		}
		s.refresh(primary, rec)
		found, err := unmarshalSession[Data](string(rec.payload))
		if err != nil {
			return err
		}
		sess = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Refresh implements Store.
func (s *MemoryStore[Data]) Refresh(ctx context.Context, key string) error {
	primary, other := s.regularKey(key), s.evictedKey(key)
	return s.queue.Do(ctx, func(context.Context) error {
		rec, ok := s.record(primary)
		if !ok {
			if s.has(other) {
				return ErrSessionFinished
			}
			return ErrNotFound
		}
		s.refresh(primary, rec)
		return nil
	})
}

// Update implements Store.
func (s *MemoryStore[Data]) Update(ctx context.Context, sess *Session[Data]) (*Session[Data], error) {
	updated := *sess
	updated.Version++
	updated.ProviderKey = s.regularKey(sess.Key)
	updated.EvictedProviderKey = s.evictedKey(sess.Key)

	payload, err := json.Marshal(&updated)
	if err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}

	err = s.queue.Do(ctx, func(context.Context) error {
		rec, ok := s.record(updated.ProviderKey)
		if !ok {
			if s.has(updated.EvictedProviderKey) {
				return ErrSessionFinished
			}
			return ErrNotFound
		}
		rec.payload = payload
		ttl := remainingTTLSeconds(rec.absexp, rec.sldexp, time.Now().Unix())
		if ttl != notPresent && ttl < 1 {
			// A lapsed bound must not fall through to "no expiry" when
			// the record is rewritten; the minimal whole-second lifetime
			// applies instead.
			ttl = 1
		}
		s.cache.Set(updated.ProviderKey, rec, ttlDuration(ttl))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Evict implements Store.
func (s *MemoryStore[Data]) Evict(ctx context.Context, key string, opt Options) (*Session[Data], error) {
	return s.move(ctx, s.regularKey(key), s.evictedKey(key), opt, ErrSessionFinished)
}

// Restore implements Store.
func (s *MemoryStore[Data]) Restore(ctx context.Context, key string, opt Options) (*Session[Data], error) {
	return s.move(ctx, s.evictedKey(key), s.regularKey(key), opt, ErrSessionRestored)
}

func (s *MemoryStore[Data]) move(ctx context.Context, source, dest string, opt Options, conflict error) (*Session[Data], error) {
	now := time.Now()
	opt.validate(now)

	var sess *Session[Data]
	err := s.queue.Do(ctx, func(context.Context) error {
		rec, ok := s.record(source)
		if !ok {
			if s.has(dest) {
				return conflict
			}
			return ErrNotFound
		}
		s.cache.Delete(source)
		s.put(dest, rec.payload, opt, now)
		found, err := unmarshalSession[Data](string(rec.payload))
		if err != nil {
			return err
		}
		sess = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// record fetches a session record, treating foreign cache values (e.g. lock
// entries sharing the substrate) as absent.
func (s *MemoryStore[Data]) record(key string) (memoryRecord, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return memoryRecord{}, false
	}
	rec, ok := v.(memoryRecord)
	return rec, ok
}

// has reports whether a live session record occupies key, without touching
// recency bookkeeping. Used for the other-slot conflict checks.
func (s *MemoryStore[Data]) has(key string) bool {
	v, ok := s.cache.Peek(key)
	if !ok {
		return false
	}
	_, ok = v.(memoryRecord)
	return ok
}

func (s *MemoryStore[Data]) put(key string, payload []byte, opt Options, now time.Time) {
	rec := memoryRecord{
		absexp:  opt.absoluteUnix(now),
		sldexp:  opt.slidingSeconds(),
		payload: payload,
	}
	s.cache.Set(key, rec, ttlDuration(opt.ttlSeconds(now)))
}

// refresh resets a record's sliding lifetime, capped by its absolute bound.
// Records without a sliding component, and records whose bound is already
// reached, keep their current lifetime.
func (s *MemoryStore[Data]) refresh(key string, rec memoryRecord) {
	ttl := refreshTTLSeconds(rec.absexp, rec.sldexp, time.Now().Unix())
	if ttl < 1 {
		return
	}
	s.cache.Touch(key, ttlDuration(ttl))
}

func ttlDuration(seconds int64) time.Duration {
	if seconds == notPresent {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
