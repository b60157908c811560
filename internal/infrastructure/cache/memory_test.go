package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notwins/backend/internal/domain"
)

func newTestMemoryCache(t *testing.T, maxEntries int) *MemoryCache {
	t.Helper()
	cache, err := NewMemoryCache(maxEntries, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value []byte
		ttl   time.Duration
	}{
		{
			name:  "store and retrieve text",
			key:   "test-key-1",
			value: []byte("test-value"),
			ttl:   1 * time.Minute,
		},
		{
			name:  "store and retrieve json",
			key:   "product:abc",
			value: []byte(`{"name":"Vestido Negro","imageUrl":"https://x/y.jpg"}`),
			ttl:   1 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, cache.Set(ctx, tt.key, tt.value, tt.ttl))

			got, err := cache.Get(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "expires-soon", []byte("v"), 1*time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	_, err := cache.Get(ctx, "expires-soon")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	exists, err := cache.Exists(ctx, "expires-soon")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := newTestMemoryCache(t, 0)

	_, err := cache.Get(context.Background(), "non-existent-key")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryCache_ReturnedSliceIsACopy(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	original := []byte("abc")
	require.NoError(t, cache.Set(ctx, "k", original, time.Minute))
	original[0] = 'z'

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'z'

	again, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "delete-test", []byte("value"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "delete-test"))

	_, err := cache.Get(ctx, "delete-test")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMemoryCache_Exists(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	exists, err := cache.Exists(ctx, "exists-test")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, cache.Set(ctx, "exists-test", []byte("value"), time.Minute))

	exists, err = cache.Exists(ctx, "exists-test")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newTestMemoryCache(t, 2)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), time.Minute))
	_, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "c", []byte("3"), time.Minute))

	assert.Equal(t, 2, cache.Size())
	_, err = cache.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	_, err = cache.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", []byte("1"), time.Millisecond))
	require.NoError(t, cache.Set(ctx, "long", []byte("2"), time.Minute))
	time.Sleep(10 * time.Millisecond)

	cache.removeExpired()
	assert.Equal(t, 1, cache.Size())
}

func TestMemoryCache_ExpiryKeepsReplacedValue(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("stale"), -time.Second))
	seenAt := time.Now()
	require.NoError(t, cache.Set(ctx, "k", []byte("fresh"), time.Minute))

	// a reader that saw the stale entry must not evict its replacement
	assert.False(t, cache.removeIfExpired("k", seenAt))
	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)

	require.NoError(t, cache.Set(ctx, "gone", []byte("v"), -time.Second))
	assert.True(t, cache.removeIfExpired("gone", time.Now()))
	assert.False(t, cache.removeIfExpired("gone", time.Now()))
}

func TestMemoryCache_SetRacingExpiredGet(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("race-%d", i)
		require.NoError(t, cache.Set(ctx, key, []byte("stale"), -time.Second))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = cache.Get(ctx, key)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set(ctx, key, []byte("fresh"), time.Minute))
		}()
		wg.Wait()

		got, err := cache.Get(ctx, key)
		require.NoError(t, err, key)
		assert.Equal(t, []byte("fresh"), got)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
	}
	assert.Equal(t, 5, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := newTestMemoryCache(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", id%5)
			assert.NoError(t, cache.Set(ctx, key, []byte(key), time.Minute))
			_, err := cache.Get(ctx, key)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache, err := NewMemoryCache(10, time.Millisecond)
	require.NoError(t, err)
	assert.NoError(t, cache.Close())
	assert.NoError(t, cache.Close())
}
