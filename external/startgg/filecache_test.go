package startgg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheKey_StableAndDistinct(t *testing.T) {
	vars := map[string]any{"page": 1, "perPage": 50, "addrState": "GA"}

	first := CacheKey(tournamentsQuery, vars)
	second := CacheKey(tournamentsQuery, map[string]any{"addrState": "GA", "perPage": 50, "page": 1})
	require.Equal(t, first, second, "key ignores variable insertion order")

	require.NotEqual(t, first, CacheKey(tournamentsQuery, map[string]any{"page": 2, "perPage": 50, "addrState": "GA"}))
	require.NotEqual(t, first, CacheKey(eventSetsQuery, vars))
	require.Len(t, first, 64)
}

func TestResponseCache_RoundTripAndExpiry(t *testing.T) {
	cache, err := NewResponseCache(t.TempDir(), time.Hour)
	require.NoError(t, err)

	key := CacheKey("query Ping", nil)
	_, ok := cache.Load(key)
	require.False(t, ok)

	payload := []byte(`{"data":{"ok":true}}`)
	require.NoError(t, cache.Store(key, payload))

	got, ok := cache.Load(key)
	require.True(t, ok)
	require.Equal(t, payload, got)

	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok = cache.Load(key)
	require.False(t, ok, "entries past the ttl read as absent")
}

func TestResponseCache_ArchivesPreviousPayload(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewResponseCache(dir, time.Hour)
	require.NoError(t, err)

	stamp := time.Unix(1_760_000_000, 0)
	cache.now = func() time.Time { return stamp }

	key := "deadbeef"
	require.NoError(t, cache.Store(key, []byte("old")))
	require.NoError(t, cache.Store(key, []byte("new")))

	got, ok := cache.Load(key)
	require.True(t, ok)
	require.Equal(t, []byte("new"), got)

	archived, err := os.ReadFile(filepath.Join(dir, "deadbeef.1760000000.json"))
	require.NoError(t, err)
	require.Equal(t, []byte("old"), archived)
}

func TestResponseCache_NilReceiverIsInert(t *testing.T) {
	var cache *ResponseCache
	_, ok := cache.Load("anything")
	require.False(t, ok)
	require.NoError(t, cache.Store("anything", []byte("x")))
}
