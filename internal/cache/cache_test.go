package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisCache(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, nil), mr
}

func TestNilClientAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c *Client

	c.Set(ctx, "k", []byte("v"), time.Minute)
	assert.Nil(t, c.Get(ctx, "k"))
	assert.False(t, c.Exists(ctx, "k"))

	empty := New(nil, nil)
	empty.Set(ctx, "k", []byte("v"), time.Minute)
	assert.Nil(t, empty.Get(ctx, "k"))
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newMiniredisCache(t)

	assert.Nil(t, c.Get(ctx, "missing"))
	assert.False(t, c.Exists(ctx, "missing"))

	c.Set(ctx, "k", []byte("v"), time.Minute)
	assert.Equal(t, []byte("v"), c.Get(ctx, "k"))
	assert.True(t, c.Exists(ctx, "k"))

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newMiniredisCache(t)

	c.Set(ctx, "k", []byte("v"), 10*time.Second)
	mr.FastForward(11 * time.Second)

	assert.Nil(t, c.Get(ctx, "k"))
	assert.False(t, c.Exists(ctx, "k"))
}

func TestUnreachableRedisFailsSafe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := New(client, nil)
	c.Set(ctx, "k", []byte("v"), time.Minute)
	assert.Nil(t, c.Get(ctx, "k"))
	assert.False(t, c.Exists(ctx, "k"))
}
