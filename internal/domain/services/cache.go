package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ersonp/calcore/internal/domain/entities"
	"github.com/ersonp/calcore/internal/domain/ports"
)

// DefaultCacheTTL is how long cached reads live when no TTL is configured.
const DefaultCacheTTL = 24 * time.Hour

// EventDetailKey is the cache key of one user's view of an event.
func EventDetailKey(eventID, userID string) string {
	return fmt.Sprintf("event_detail_view_%s_user_%s", eventID, userID)
}

// ParticipantsKey is the cache key of an event's participant list.
func ParticipantsKey(eventID string) string {
	return "event_participants_" + eventID
}

// CacheInvalidator owns the cache keys derived from events and drops them
// after committed mutations. Cache failures are logged and never fail the
// calling operation. A nil cache disables caching.
//
// Every invalidation bumps a generation counter. A read-through only stores
// what it loaded if no invalidation happened while it was loading, so a read
// racing a committed mutation cannot write the old value back.
type CacheInvalidator struct {
	cache  ports.Cache
	ttl    time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
}

// NewCacheInvalidator creates a CacheInvalidator over cache.
func NewCacheInvalidator(cache ports.Cache, ttl time.Duration, logger *slog.Logger) *CacheInvalidator {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CacheInvalidator{cache: cache, ttl: ttl, logger: loggerOrDiscard(logger)}
}

// InvalidateEvent drops the detail view of every listed participant.
func (c *CacheInvalidator) InvalidateEvent(ctx context.Context, eventID string, participants []entities.Participant) {
	for _, p := range participants {
		c.InvalidateDetail(ctx, eventID, p.UserID)
	}
}

// InvalidateDetail drops one user's detail view of an event.
func (c *CacheInvalidator) InvalidateDetail(ctx context.Context, eventID, userID string) {
	c.delete(ctx, EventDetailKey(eventID, userID))
}

// InvalidateParticipants drops the cached participant list of an event.
func (c *CacheInvalidator) InvalidateParticipants(ctx context.Context, eventID string) {
	c.delete(ctx, ParticipantsKey(eventID))
}

func (c *CacheInvalidator) delete(ctx context.Context, key string) {
	if c == nil || c.cache == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", "key", key, "error", err)
	}
}

func (c *CacheInvalidator) load(ctx context.Context, key string, dst any) bool {
	if c == nil || c.cache == nil {
		return false
	}
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.WarnContext(ctx, "cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CacheInvalidator) currentGeneration() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// store caches v under key unless an invalidation happened after generation
// was read.
func (c *CacheInvalidator) store(ctx context.Context, key string, v any, generation uint64) {
	if c == nil || c.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WarnContext(ctx, "cache entry not encodable", "key", key, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		c.logger.DebugContext(ctx, "cache fill skipped after invalidation", "key", key)
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// readThrough returns the cached value under key, or calls load and caches
// its result. Errors from load are returned and never cached.
func readThrough[T any](ctx context.Context, c *CacheInvalidator, key string, load func() (T, error)) (T, error) {
	var cached T
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	generation := c.currentGeneration()
	v, err := load()
	if err != nil {
		return v, err
	}
	c.store(ctx, key, v, generation)
	return v, nil
}
