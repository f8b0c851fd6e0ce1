package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/internal/infrastructure/redis"
)

// unreachable points at a port nothing listens on.
func unreachable(t *testing.T) *goredis.Client {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_BadAddress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := redis.NewClient(ctx, redis.Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestSessionStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store := redis.NewSessionStore(unreachable(t))

	_, err := store.Get(ctx, "ocr:1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))

	err = store.Set(ctx, "ocr:1", []byte("x"), time.Minute)
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))

	err = store.Delete(ctx, "ocr:1")
	assert.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))

	assert.True(t, apperr.IsValidation(store.Set(ctx, "k", nil, -time.Second)), "validated before any I/O")
}
