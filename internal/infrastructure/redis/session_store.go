package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jecoplus/lending/internal/domain/apperr"
)

// DefaultPrefix namespaces every key written by SessionStore.
const DefaultPrefix = "lending:session:"

// SessionStore implements port.SessionStore on Redis, delegating expiry to
// the server.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewSessionStore(client goredis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, prefix: DefaultPrefix}
}

func (s *SessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, apperr.NotFound("session %s not found or expired", key)
	}
	if err != nil {
		return nil, apperr.Unavailable(err, "redis get %s", key)
	}
	return data, nil
}

// Set stores value; a ttl of zero keeps the key until it is deleted.
func (s *SessionStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return apperr.Validation("ttl must not be negative, got %s", ttl)
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return apperr.Unavailable(err, "redis set %s", key)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return apperr.Unavailable(err, "redis del %s", key)
	}
	return nil
}

// Ping is used by the readiness probe.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
