package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session does not exist or has expired.
// Callers cannot distinguish the two; an expired record is logically absent.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable is an exported constant or variable used by the session store.
var ErrRedisUnavailable = errors.New("session: redis unavailable")

// rotateScript atomically copies the record to the new identifier and leaves
// only a short grace TTL on the old one, so the old id is invalidated together
// with the creation of the new id while requests already holding it can finish.
const rotateScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return false
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  return false
end
redis.call("SET", KEYS[2], data, "PX", ttl)
redis.call("PEXPIRE", KEYS[1], tonumber(ARGV[1]))
return data
`

var rotateLua = redis.NewScript(rotateScript)

// Config holds session store tuning parameters.
type Config struct {
	Prefix          string
	DefaultTimeout  time.Duration
	ExtendedTimeout time.Duration
	RotateGrace     time.Duration
}

// Store is the Redis-backed session store. Expiry is enforced twice: by the
// key TTL in Redis and by the ExpiresAt stamp inside the record, checked on
// every read before anything else may touch the record.
type Store struct {
	redis  redis.UniversalClient
	config Config

	now func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(redisClient redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "sess"
	}
	return &Store{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

func (s *Store) key(id string) string {
	return s.config.Prefix + ":" + id
}

func (s *Store) userKey(userID string) string {
	return s.config.Prefix + ":u:" + userID
}

func (s *Store) timeoutFor(class TimeoutClass) time.Duration {
	if class == TimeoutExtended {
		return s.config.ExtendedTimeout
	}
	return s.config.DefaultTimeout
}

// Get retrieves a session by id. A record whose ExpiresAt has passed is
// deleted and reported as [ErrNotFound]; this check runs before any caller
// can apply a sliding renewal, so a timed-out session cannot be resurrected.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		// Corrupt blob: remove it rather than serve garbage.
		_ = s.redis.Del(ctx, s.key(id)).Err()
		return nil, ErrNotFound
	}
	rec.ID = id

	if rec.ExpiresAt <= s.now().Unix() {
		if err := s.removeWithIndex(ctx, rec); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return rec, nil
}

// Save upserts a record, recomputing UpdatedAt and the sliding ExpiresAt from
// the timeout class. CreatedAt is stamped on first write only.
func (s *Store) Save(ctx context.Context, rec *Record, class TimeoutClass) error {
	ttl := s.timeoutFor(class)
	now := s.now()

	if rec.CreatedAt == 0 {
		rec.CreatedAt = now.Unix()
	}
	rec.UpdatedAt = now.Unix()
	rec.ExpiresAt = now.Add(ttl).Unix()

	data, err := Encode(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.ID), data, ttl)
		if rec.UserID != "" {
			pipe.SAdd(ctx, s.userKey(rec.UserID), rec.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes a session unconditionally. Deleting an absent session is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, decodeErr := Decode(data)
	if decodeErr != nil {
		if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}
	rec.ID = id
	return s.removeWithIndex(ctx, rec)
}

// Rotate atomically moves the record to a fresh identifier, invalidating the
// old one apart from a short grace TTL, and regenerates the anti-forgery
// token. The rotation clock (CreatedAt) restarts on the new identifier.
func (s *Store) Rotate(ctx context.Context, oldID string) (*Record, error) {
	newID, err := NewID()
	if err != nil {
		return nil, err
	}

	grace := s.config.RotateGrace
	if grace <= 0 {
		grace = time.Millisecond
	}

	res, err := rotateLua.Run(ctx, s.redis,
		[]string{s.key(oldID), s.key(newID)},
		grace.Milliseconds(),
	).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	data, ok := res.(string)
	if !ok {
		return nil, ErrNotFound
	}

	rec, err := Decode([]byte(data))
	if err != nil {
		return nil, ErrNotFound
	}
	rec.ID = newID

	now := s.now()
	if rec.ExpiresAt <= now.Unix() {
		_ = s.redis.Del(ctx, s.key(newID)).Err()
		return nil, ErrNotFound
	}

	csrf, err := NewCSRFToken()
	if err != nil {
		return nil, err
	}
	rec.CSRFToken = csrf
	rec.CreatedAt = now.Unix()
	rec.UpdatedAt = now.Unix()

	encoded, err := Encode(rec)
	if err != nil {
		return nil, err
	}

	remaining := time.Unix(rec.ExpiresAt, 0).Sub(now)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(newID), encoded, remaining)
		if rec.UserID != "" {
			pipe.SAdd(ctx, s.userKey(rec.UserID), newID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return rec, nil
}

// ListActiveForUser returns the live sessions of one user, pruning index
// entries for sessions that meanwhile expired.
func (s *Store) ListActiveForUser(ctx context.Context, userID string) ([]*Record, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				_ = s.redis.SRem(ctx, s.userKey(userID), id).Err()
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// TerminateAllForUser deletes every session of a user, optionally sparing
// one identifier (the caller's own session in a "log out everywhere" flow).
func (s *Store) TerminateAllForUser(ctx context.Context, userID, exceptID string) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	terminated := 0
	for _, id := range ids {
		if id == exceptID {
			continue
		}
		_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.key(id))
			pipe.SRem(ctx, s.userKey(userID), id)
			return nil
		})
		if err != nil {
			return terminated, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		terminated++
	}
	return terminated, nil
}

// Sweep garbage-collects the user indexes: session keys expire on their own
// through Redis TTLs, but index members for dead sessions linger until this
// removes them. Delete-only, safe to run concurrently with normal traffic.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	pruned := 0
	var cursor uint64
	pattern := s.config.Prefix + ":u:*"

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 64).Result()
		if err != nil {
			return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, indexKey := range keys {
			ids, err := s.redis.SMembers(ctx, indexKey).Result()
			if err != nil {
				return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			for _, id := range ids {
				exists, err := s.redis.Exists(ctx, s.key(id)).Result()
				if err != nil {
					return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
				}
				if exists == 0 {
					if err := s.redis.SRem(ctx, indexKey, id).Err(); err != nil {
						return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
					}
					pruned++
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return pruned, nil
		}
	}
}

func (s *Store) removeWithIndex(ctx context.Context, rec *Record) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(rec.ID))
		if rec.UserID != "" {
			pipe.SRem(ctx, s.userKey(rec.UserID), rec.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
