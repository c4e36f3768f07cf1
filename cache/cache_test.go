package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string
	Score int
}

func TestRedisSetGetJSON(t *testing.T) {
	r := miniredis.RunT(t)
	defer r.Close()

	ctx := context.Background()
	c, err := NewRedisCache(ctx, fmt.Sprintf("redis://%s", r.Addr()))
	require.NoError(t, err)

	in := payload{Name: "pushups", Score: 2}
	require.NoError(t, c.SetJSON(ctx, "similar:test", in, 0))

	var out payload
	found, err := c.GetJSON(ctx, "similar:test", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestRedisMiss(t *testing.T) {
	r := miniredis.RunT(t)
	defer r.Close()

	ctx := context.Background()
	c, err := NewRedisCache(ctx, fmt.Sprintf("redis://%s", r.Addr()))
	require.NoError(t, err)

	var out payload
	found, err := c.GetJSON(ctx, "nope", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisTTLExpiry(t *testing.T) {
	r := miniredis.RunT(t)
	defer r.Close()

	ctx := context.Background()
	c, err := NewRedisCache(ctx, fmt.Sprintf("redis://%s", r.Addr()))
	require.NoError(t, err)

	require.NoError(t, c.SetJSON(ctx, "k", payload{Name: "squats"}, 300*time.Second))

	var out payload
	found, err := c.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)

	r.FastForward(301 * time.Second)

	found, err = c.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found, "entry should expire after its TTL")
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mc.SetClock(func() time.Time { return now })

	require.NoError(t, mc.SetJSON(ctx, "k", payload{Name: "plank"}, 300*time.Second))

	var out payload
	found, err := mc.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "plank", out.Name)

	now = now.Add(301 * time.Second)
	found, err = mc.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheOverwriteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()

	require.NoError(t, mc.SetJSON(ctx, "k", payload{Score: 1}, 0))
	require.NoError(t, mc.SetJSON(ctx, "k", payload{Score: 1}, 0))

	var out payload
	found, err := mc.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, out.Score)
}
