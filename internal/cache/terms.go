// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// terms.go caches the flat term list of each taxonomy in Valkey so
// repeated tree loads skip the database. Every mutation of a taxonomy
// invalidates its entry.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"bcm/internal/models"
)

const (
	// termKeyPrefix is the Valkey key prefix for cached term lists.
	termKeyPrefix = "terms:"

	// DefaultTermTTL is how long a term list stays cached.
	DefaultTermTTL = 5 * time.Minute
)

// TermCache manages term list caching in Valkey. A nil *TermCache is a
// disabled cache: every Get misses and writes are dropped.
type TermCache struct {
	client  *redis.Client
	ttl     time.Duration
	observe func(hit bool)
}

// NewTermCache creates a term cache backed by the given Valkey client.
func NewTermCache(client *redis.Client, ttl time.Duration) *TermCache {
	if ttl <= 0 {
		ttl = DefaultTermTTL
	}
	return &TermCache{client: client, ttl: ttl}
}

// OnLookup registers fn to be called after every Get with whether it hit.
func (c *TermCache) OnLookup(fn func(hit bool)) {
	if c != nil {
		c.observe = fn
	}
}

// Key returns the cache key of a taxonomy's term list.
func Key(taxonomy string) string {
	return termKeyPrefix + taxonomy
}

// Get returns the cached terms of taxonomy. The bool is false on a miss.
func (c *TermCache) Get(ctx context.Context, taxonomy string) ([]models.Term, bool) {
	if c == nil {
		return nil, false
	}
	terms, hit := c.get(ctx, taxonomy)
	if c.observe != nil {
		c.observe(hit)
	}
	return terms, hit
}

func (c *TermCache) get(ctx context.Context, taxonomy string) ([]models.Term, bool) {
	val, err := c.client.Get(ctx, Key(taxonomy)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("term cache get error", "taxonomy", taxonomy, "error", err)
		return nil, false
	}

	var terms []models.Term
	if err := json.Unmarshal(val, &terms); err != nil {
		slog.Warn("term cache decode error", "taxonomy", taxonomy, "error", err)
		return nil, false
	}
	slog.Debug("term cache hit", "taxonomy", taxonomy)
	return terms, true
}

// Set stores the terms of taxonomy with the configured TTL.
func (c *TermCache) Set(ctx context.Context, taxonomy string, terms []models.Term) {
	if c == nil {
		return
	}
	if terms == nil {
		terms = []models.Term{}
	}
	val, err := json.Marshal(terms)
	if err != nil {
		slog.Warn("term cache encode error", "taxonomy", taxonomy, "error", err)
		return
	}
	if err := c.client.Set(ctx, Key(taxonomy), val, c.ttl).Err(); err != nil {
		slog.Warn("term cache set error", "taxonomy", taxonomy, "error", err)
	}
}

// Invalidate removes the cached terms of taxonomy.
func (c *TermCache) Invalidate(ctx context.Context, taxonomy string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, Key(taxonomy)).Err(); err != nil {
		slog.Warn("term cache invalidate error", "taxonomy", taxonomy, "error", err)
		return
	}
	slog.Debug("term cache invalidated", "taxonomy", taxonomy)
}

// InvalidateAll removes every cached term list by scanning for the prefix.
func (c *TermCache) InvalidateAll(ctx context.Context) {
	if c == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, termKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("term cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("term cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("term cache fully cleared", "deleted", deleted)
	}
}
