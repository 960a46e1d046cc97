package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newslens/newslens/pkg/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func TestCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	q := Query{Text: "ai regulation", Window: "24h", Language: "en", KFinal: 5}
	docs := []models.Document{doc("a1", "2026-08-20", "alpha")}

	_, ok := cache.Get(context.Background(), q)
	assert.False(t, ok)

	cache.Put(context.Background(), q, docs)

	got, ok := cache.Get(context.Background(), q)
	require.True(t, ok)
	assert.Equal(t, docs, got)
}

func TestCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	q := Query{Text: "q", Window: "24h", KFinal: 5}
	cache.Put(context.Background(), q, []models.Document{doc("a1", "2026-08-20", "alpha")})

	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(context.Background(), q)
	assert.False(t, ok)
}

func TestCache_KeyIgnoresSourceOrder(t *testing.T) {
	a := Query{Text: "q", Window: "24h", KFinal: 5, Sources: []string{"b.com", "a.com"}}
	b := Query{Text: "q", Window: "24h", KFinal: 5, Sources: []string{"a.com", "b.com"}}
	c := Query{Text: "q", Window: "24h", KFinal: 5, Sources: []string{"a.com"}}

	assert.Equal(t, cacheKey(a), cacheKey(b))
	assert.NotEqual(t, cacheKey(a), cacheKey(c))
}

func TestCache_KeyVariesWithParameters(t *testing.T) {
	base := Query{Text: "q", Window: "24h", Language: "en", KFinal: 5}

	changed := base
	changed.Window = "3d"
	assert.NotEqual(t, cacheKey(base), cacheKey(changed))

	changed = base
	changed.UseRerank = true
	assert.NotEqual(t, cacheKey(base), cacheKey(changed))

	changed = base
	changed.KFinal = 6
	assert.NotEqual(t, cacheKey(base), cacheKey(changed))
}

func TestCache_RedisDownDegradesSilently(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	q := Query{Text: "q", Window: "24h", KFinal: 5}
	cache.Put(context.Background(), q, []models.Document{doc("a1", "2026-08-20", "alpha")})
	_, ok := cache.Get(context.Background(), q)
	assert.False(t, ok)
}
