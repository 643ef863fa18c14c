package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/issue-tracker/internal/cache"
)

func TestRevocationStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRevocationStore(cache.New(client, nil))

	assert.False(t, store.IsRevoked(ctx, "jti-1"))

	store.Revoke(ctx, "jti-1", time.Hour)
	assert.True(t, store.IsRevoked(ctx, "jti-1"))
	assert.False(t, store.IsRevoked(ctx, "jti-2"))
	assert.Equal(t, time.Hour, mr.TTL(revokedTokenKeyPrefix+"jti-1"))

	mr.FastForward(time.Hour + time.Second)
	assert.False(t, store.IsRevoked(ctx, "jti-1"))
}

func TestRevocationStoreIgnoresEmptyInput(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRevocationStore(cache.New(client, nil))

	store.Revoke(ctx, "", time.Hour)
	store.Revoke(ctx, "jti-1", 0)
	assert.Empty(t, mr.Keys())
	assert.False(t, store.IsRevoked(ctx, ""))

	var nilStore *RevocationStore
	nilStore.Revoke(ctx, "jti-1", time.Hour)
	assert.False(t, nilStore.IsRevoked(ctx, "jti-1"))
}
