package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newslens/newslens/pkg/models"
)

// Cache is a short-lived Redis cache of retrieval results. Identical
// queries within the TTL reuse the prior result list; the cache is
// invisible to callers except in latency. Redis failures degrade to
// uncached retrieval, never to request failure.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a cache with the configured TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached result for the query, if any.
func (c *Cache) Get(ctx context.Context, q Query) ([]models.Document, bool) {
	data, err := c.client.Get(ctx, cacheKey(q)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("Retrieval cache read failed", "error", err)
		}
		return nil, false
	}
	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, false
	}
	return docs, true
}

// Put stores the result list under the query's key.
func (c *Cache) Put(ctx context.Context, q Query, docs []models.Document) {
	data, err := json.Marshal(docs)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(q), data, c.ttl).Err(); err != nil {
		slog.Warn("Retrieval cache write failed", "error", err)
	}
}

// cacheKey hashes the normalized query parameters. Source order must
// not change the key.
func cacheKey(q Query) string {
	sources := append([]string(nil), q.Sources...)
	sort.Strings(sources)
	raw := fmt.Sprintf("%s|%s|%s|%s|%d|%t",
		strings.ToLower(strings.TrimSpace(q.Text)),
		q.Window, q.Language, strings.Join(sources, ","), q.KFinal, q.UseRerank)
	sum := sha256.Sum256([]byte(raw))
	return "newslens:retrieval:" + hex.EncodeToString(sum[:])
}
