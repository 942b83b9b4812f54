package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessionkit/core/logger"
)

// Script reply markers. Changing these, or the positional ARGV layout below,
// is a breaking wire change.
const (
	replySuccess    = "1"
	replyOtherState = "0"
)

// Every script receives the primary storage key as KEYS[1] and a fixed
// positional argument vector:
//
//	ARGV = [absexpUnixSecondsOr-1, slidingSecondsOr-1, ttlSecondsOr-1,
//	        ...operation-specific args..., otherStateKey]
//
// and replies with exactly one of: the serialized payload, replySuccess,
// replyOtherState, or nil (absent in both states).
const (
	// add: ARGV[4]=payload, ARGV[5]=evicted key.
	scriptAddSrc = `if redis.call('EXISTS', KEYS[1]) == 1 then
  return redis.call('HGET', KEYS[1], 'data')
end
if redis.call('EXISTS', ARGV[5]) == 1 then
  return '0'
end
redis.call('HSET', KEYS[1], 'absexp', ARGV[1], 'sldexp', ARGV[2], 'data', ARGV[4])
if ARGV[3] ~= '-1' then
  redis.call('EXPIRE', KEYS[1], ARGV[3])
end
return '1'`

	// get: ARGV[4]=now, ARGV[5]=other-state key. Refreshes the sliding
	// lifetime in place, capped by the stored absolute bound.
	scriptGetSrc = `local v = redis.call('HMGET', KEYS[1], 'absexp', 'sldexp', 'data')
if v[3] then
  local sldexp = tonumber(v[2])
  if sldexp ~= -1 then
    local ttl = sldexp
    local absexp = tonumber(v[1])
    if absexp ~= -1 then
      local remaining = absexp - tonumber(ARGV[4])
      if remaining < ttl then ttl = remaining end
    end
    if ttl > 0 then redis.call('EXPIRE', KEYS[1], ttl) end
  end
  return v[3]
end
if redis.call('EXISTS', ARGV[5]) == 1 then
  return '0'
end
return nil`

	// refresh: same shape as get, payload omitted.
	scriptRefreshSrc = `local v = redis.call('HMGET', KEYS[1], 'absexp', 'sldexp')
if v[1] then
  local sldexp = tonumber(v[2])
  if sldexp ~= -1 then
    local ttl = sldexp
    local absexp = tonumber(v[1])
    if absexp ~= -1 then
      local remaining = absexp - tonumber(ARGV[4])
      if remaining < ttl then ttl = remaining end
    end
    if ttl > 0 then redis.call('EXPIRE', KEYS[1], ttl) end
  end
  return '1'
end
if redis.call('EXISTS', ARGV[5]) == 1 then
  return '0'
end
return nil`

	// update: ARGV[4]=payload, ARGV[5]=now, ARGV[6]=evicted key. Preserves
	// the stored expiration policy and refreshes the remaining lifetime.
	scriptUpdateSrc = `local v = redis.call('HMGET', KEYS[1], 'absexp', 'sldexp')
if v[1] then
  redis.call('HSET', KEYS[1], 'data', ARGV[4])
  local sldexp = tonumber(v[2])
  if sldexp ~= -1 then
    local ttl = sldexp
    local absexp = tonumber(v[1])
    if absexp ~= -1 then
      local remaining = absexp - tonumber(ARGV[5])
      if remaining < ttl then ttl = remaining end
    end
    if ttl > 0 then redis.call('EXPIRE', KEYS[1], ttl) end
  end
  return '1'
end
if redis.call('EXISTS', ARGV[6]) == 1 then
  return '0'
end
return nil`

	// move: ARGV[4]=destination key. Shared by Evict (regular -> evicted)
	// and Restore (evicted -> regular); the transition is all-or-nothing.
	scriptMoveSrc = `local data = redis.call('HGET', KEYS[1], 'data')
if data then
  redis.call('DEL', KEYS[1])
  redis.call('DEL', ARGV[4])
  redis.call('HSET', ARGV[4], 'absexp', ARGV[1], 'sldexp', ARGV[2], 'data', data)
  if ARGV[3] ~= '-1' then
    redis.call('EXPIRE', ARGV[4], ARGV[3])
  end
  return data
end
if redis.call('EXISTS', ARGV[4]) == 1 then
  return '0'
end
return nil`
)

var (
	scriptAdd     = redis.NewScript(scriptAddSrc)
	scriptGet     = redis.NewScript(scriptGetSrc)
	scriptRefresh = redis.NewScript(scriptRefreshSrc)
	scriptUpdate  = redis.NewScript(scriptUpdateSrc)
	scriptMove    = redis.NewScript(scriptMoveSrc)
)

// RedisStore implements Store against a Redis-compatible service. Every
// state-changing operation executes as a single server-side Lua script, so
// the service itself is the serialization point; two concurrent operations
// on the same key race, and exactly one wins.
//
// Scripts are invoked by content hash first (EVALSHA) to save bandwidth
// behind caching proxies; a script-cache miss falls back to loading the full
// body, bounded by WithScriptRetryAttempts.
type RedisStore[Data any] struct {
	client redis.UniversalClient
	kind   string

	prefix        string
	scriptRetries int
	logger        *slog.Logger
}

// NewRedisStore creates a redis-backed store for the given session kind.
func NewRedisStore[Data any](client redis.UniversalClient, kind string, opts ...Option) *RedisStore[Data] {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &RedisStore[Data]{
		client:        client,
		kind:          kind,
		prefix:        s.prefix,
		scriptRetries: s.scriptRetries,
		logger:        s.logger,
	}
}

// Kind returns the session kind discriminator.
func (s *RedisStore[Data]) Kind() string { return s.kind }

func (s *RedisStore[Data]) regularKey(key string) string {
	return regularKey(s.prefix, s.kind, key)
}

func (s *RedisStore[Data]) evictedKey(key string) string {
	return evictedKey(s.prefix, s.kind, key)
}

// Add implements Store.
func (s *RedisStore[Data]) Add(ctx context.Context, key string, data Data, opt Options) (*Session[Data], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
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

	res, err := s.runScript(ctx, scriptAdd, []string{sess.ProviderKey},
		formatSeconds(opt.absoluteUnix(now)),
		formatSeconds(opt.slidingSeconds()),
		formatSeconds(opt.ttlSeconds(now)),
		payload,
		sess.EvictedProviderKey,
	)
	if err != nil {
		return nil, err
	}
	switch reply := res.(type) {
	case nil:
		return nil, fmt.Errorf("%w: add returned no result", ErrProtocolViolation)
	case string:
		switch reply {
		case replySuccess:
			return sess, nil
		case replyOtherState:
			return nil, ErrSessionFinished
		default:
			existing, err := unmarshalSession[Data](reply)
			if err != nil {
				return nil, err
			}
			return existing, ErrSessionInProgress
		}
	default:
		return nil, fmt.Errorf("%w: add returned %T", ErrProtocolViolation, res)
	}
}

// Get implements Store.
func (s *RedisStore[Data]) Get(ctx context.Context, key string) (*Session[Data], error) {
	return s.get(ctx, s.regularKey(key), s.evictedKey(key), ErrSessionFinished)
}

// GetEvicted implements Store.
func (s *RedisStore[Data]) GetEvicted(ctx context.Context, key string) (*Session[Data], error) {
	return s.get(ctx, s.evictedKey(key), s.regularKey(key), ErrSessionRestored)
}

func (s *RedisStore[Data]) get(ctx context.Context, primary, other string, conflict error) (*Session[Data], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.runScript(ctx, scriptGet, []string{primary},
		formatSeconds(notPresent),
		formatSeconds(notPresent),
		formatSeconds(notPresent),
		formatSeconds(time.Now().Unix()),
		other,
	)
	if err != nil {
		return nil, err
	}
	switch reply := res.(type) {
	case nil:
		return nil, ErrNotFound
	case string:
		if reply == replyOtherState {
			return nil, conflict
		}
		return unmarshalSession[Data](reply)
	default:
		return nil, fmt.Errorf("%w: get returned %T", ErrProtocolViolation, res)
	}
}

// Refresh implements Store.
func (s *RedisStore[Data]) Refresh(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.runScript(ctx, scriptRefresh, []string{s.regularKey(key)},
		formatSeconds(notPresent),
		formatSeconds(notPresent),
		formatSeconds(notPresent),
		formatSeconds(time.Now().Unix()),
		s.evictedKey(key),
	)
	if err != nil {
		return err
	}
	switch res {
	case nil:
		return ErrNotFound
	case replySuccess:
		return nil
	case replyOtherState:
		return ErrSessionFinished
	default:
		return fmt.Errorf("%w: refresh returned %v", ErrProtocolViolation, res)
	}
}

// Update implements Store.
func (s *RedisStore[Data]) Update(ctx context.Context, sess *Session[Data]) (*Session[Data], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	updated := *sess
	updated.Version++
	updated.ProviderKey = s.regularKey(sess.Key)
	updated.EvictedProviderKey = s.evictedKey(sess.Key)

	payload, err := json.Marshal(&updated)
	if err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}

	res, err := s.runScript(ctx, scriptUpdate, []string{updated.ProviderKey},
		formatSeconds(notPresent),
		formatSeconds(notPresent),
		formatSeconds(notPresent),
		payload,
		formatSeconds(time.Now().Unix()),
		updated.EvictedProviderKey,
	)
	if err != nil {
		return nil, err
	}
	switch res {
	case nil:
		return nil, ErrNotFound
	case replySuccess:
		return &updated, nil
	case replyOtherState:
		return nil, ErrSessionFinished
	default:
		return nil, fmt.Errorf("%w: update returned %v", ErrProtocolViolation, res)
	}
}

// Evict implements Store.
func (s *RedisStore[Data]) Evict(ctx context.Context, key string, opt Options) (*Session[Data], error) {
	return s.move(ctx, s.regularKey(key), s.evictedKey(key), opt, ErrSessionFinished)
}

// Restore implements Store.
func (s *RedisStore[Data]) Restore(ctx context.Context, key string, opt Options) (*Session[Data], error) {
	return s.move(ctx, s.evictedKey(key), s.regularKey(key), opt, ErrSessionRestored)
}

func (s *RedisStore[Data]) move(ctx context.Context, source, dest string, opt Options, conflict error) (*Session[Data], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()
	opt.validate(now)

	res, err := s.runScript(ctx, scriptMove, []string{source},
		formatSeconds(opt.absoluteUnix(now)),
		formatSeconds(opt.slidingSeconds()),
		formatSeconds(opt.ttlSeconds(now)),
		dest,
	)
	if err != nil {
		return nil, err
	}
	switch reply := res.(type) {
	case nil:
		return nil, ErrNotFound
	case string:
		if reply == replyOtherState {
			return nil, conflict
		}
		return unmarshalSession[Data](reply)
	default:
		return nil, fmt.Errorf("%w: move returned %T", ErrProtocolViolation, res)
	}
}

// runScript executes a script by hash, falling back to a full script load on
// a cache miss. The fallback only changes transport efficiency, never the
// observable result. A nil, nil return means the script replied with nil.
func (s *RedisStore[Data]) runScript(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error) {
	var lastErr error
	for attempt := 0; attempt < s.scriptRetries; attempt++ {
		res, err := script.EvalSha(ctx, s.client, keys, args...).Result()
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, redis.Nil):
			return nil, nil
		case !redis.HasErrorPrefix(err, "NOSCRIPT"):
			return nil, fmt.Errorf("session store script failed: %w", err)
		}
		lastErr = err

		s.logger.DebugContext(ctx, "script cache miss, reloading",
			slog.String("hash", script.Hash()),
			logger.Attempt(attempt+1))
		if err := script.Load(ctx, s.client).Err(); err != nil {
			return nil, fmt.Errorf("session store script load failed: %w", err)
		}
	}
	return nil, errors.Join(ErrScriptRetryExhausted, lastErr)
}

func unmarshalSession[Data any](payload string) (*Session[Data], error) {
	var sess Session[Data]
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}
	return &sess, nil
}

func formatSeconds(v int64) string {
	return strconv.FormatInt(v, 10)
}
