package history

import (
	"context"
	"encoding/json"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
	"github.com/Araaditya/WhatsEase-dev-task/internal/port"
	"github.com/Araaditya/WhatsEase-dev-task/internal/redis"
	"github.com/Araaditya/WhatsEase-dev-task/pkg/logger"
)

// CachedStore keeps the newest messages of each room in a Redis list so the
// common join path avoids a database round trip. The database remains the
// source of truth; cache failures fall back to it silently.
type CachedStore struct {
	store port.HistoryStore
	cache *redis.RedisClient
	limit int
	log   logger.Logger
}

// NewCachedStore wraps store with a recent-messages cache holding up to
// limit entries per room. limit must be positive; it matches the join
// history bound so a full cache can answer a join on its own.
func NewCachedStore(store port.HistoryStore, cache *redis.RedisClient, limit int, log logger.Logger) *CachedStore {
	return &CachedStore{store: store, cache: cache, limit: limit, log: log}
}

func cacheKey(room string) string {
	return "history:" + room
}

func (c *CachedStore) Append(ctx context.Context, room string, author domain.Identity, bot bool, body string) (domain.ChatMessage, error) {
	msg, err := c.store.Append(ctx, room, author, bot, body)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	data, merr := json.Marshal(msg)
	if merr == nil {
		merr = c.cache.PushRecent(ctx, cacheKey(room), data, c.limit)
	}
	if merr != nil {
		c.log.Warnf("history cache append failed for room %s: %v", room, merr)
	}
	return msg, nil
}

func (c *CachedStore) Read(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	// The cache can only answer the standard join query, and only when it is
	// full: a shorter list might be missing older rows written before the
	// cache was (re)created.
	if limit == c.limit {
		if msgs, ok := c.readCache(ctx, room); ok {
			return msgs, nil
		}
	}
	return c.store.Read(ctx, room, limit)
}

func (c *CachedStore) readCache(ctx context.Context, room string) ([]domain.ChatMessage, bool) {
	entries, err := c.cache.ListRecent(ctx, cacheKey(room))
	if err != nil {
		c.log.Warnf("history cache read failed for room %s: %v", room, err)
		return nil, false
	}
	if len(entries) != c.limit {
		return nil, false
	}

	msgs := make([]domain.ChatMessage, len(entries))
	for i, e := range entries {
		if err := json.Unmarshal([]byte(e), &msgs[i]); err != nil {
			c.log.Warnf("history cache decode failed for room %s: %v", room, err)
			return nil, false
		}
	}
	return msgs, true
}

var (
	_ port.HistoryStore = (*Store)(nil)
	_ port.HistoryStore = (*CachedStore)(nil)
)
