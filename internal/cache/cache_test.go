package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type overview struct {
	Total int            `json:"total"`
	Hist  map[string]int `json:"hist"`
}

func TestMemory_SetGetClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	var got overview
	ok, err := c.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := overview{Total: 3, Hist: map[string]int{"5": 3}}
	require.NoError(t, c.Set(ctx, "stats", want))
	require.NoError(t, c.Set(ctx, "categories", []string{"Poetry"}))

	ok, err = c.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
	ok, _ = c.Get(ctx, "stats", &got)
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(50 * time.Millisecond)

	require.NoError(t, c.Set(ctx, "k", 1))
	var v int
	ok, _ := c.Get(ctx, "k", &v)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Eventually(t, func() bool {
		ok, _ := c.Get(ctx, "k", &v)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemory_NoTTLKeepsEntries(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	require.NoError(t, c.Set(ctx, "k", "v"))
	time.Sleep(20 * time.Millisecond)
	var v string
	ok, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFetch_LoadsOnceThenServesCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"Fiction", "Poetry"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Fetch(ctx, c, "categories", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"Fiction", "Poetry"}, v)
	}
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Clear(ctx))
	_, err := Fetch(ctx, c, "categories", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetch_LoadErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)
	boom := errors.New("db down")

	_, err := Fetch(ctx, c, "k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestFetch_NilCache(t *testing.T) {
	v, err := Fetch(context.Background(), nil, "k", func() (int, error) { return 4, nil })
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

// Runs only against a live server, e.g. REDIS_TEST_ADDR=localhost:6379.
func TestRedis_ClearDropsOnlyPrefixedKeys(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, time.Minute)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.client.Set(ctx, "foreign:key", "keep", time.Minute).Err())
	defer r.client.Del(ctx, "foreign:key")

	require.NoError(t, r.Set(ctx, "stats", overview{Total: 1}))
	var got overview
	ok, err := r.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, got.Total)

	require.NoError(t, r.Clear(ctx))
	ok, err = r.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "keep", r.client.Get(ctx, "foreign:key").Val())
}
