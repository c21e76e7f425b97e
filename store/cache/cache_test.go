package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "a", 1)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Delete(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.SetWithTTL(ctx, "short", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get(ctx, "short")
	assert.False(t, ok, "expired entry must not be returned")
}

func TestCacheMaxItemsEviction(t *testing.T) {
	ctx := context.Background()
	evicted := make(map[string]bool)
	c := New(Config{
		DefaultTTL: time.Minute,
		MaxItems:   2,
		OnEviction: func(key string, _ any) { evicted[key] = true },
	})
	defer c.Close()

	c.SetWithTTL(ctx, "first", 1, time.Minute)
	c.SetWithTTL(ctx, "second", 2, 2*time.Minute)
	c.SetWithTTL(ctx, "third", 3, 3*time.Minute)

	assert.Equal(t, 2, c.Size())
	assert.True(t, evicted["first"], "entry closest to expiry is evicted")

	_, ok := c.Get(ctx, "third")
	assert.True(t, ok)
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	c.Clear(ctx)
	assert.Zero(t, c.Size())
}
