package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
	"github.com/pscheid92/feedbackpulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	statsCacheKey = "stats_cache:global"
	statsCacheTTL = 1 * time.Hour

	layerMemory = "memory"
	layerRedis  = "redis"

	originLocal  = "local"
	originRemote = "remote"
)

// StatsCache serves global sentiment counts from memory, then Redis, then
// the feedback repository. Redis failures degrade to the repository.
type StatsCache struct {
	rdb      *goredis.Client
	feedback domain.FeedbackRepository
	mem      *memoryCache
	clock    clockwork.Clock
	group    singleflight.Group
	metrics  *metrics.CacheMetrics

	// generation is bumped on every invalidation. A load only stores its
	// result if the generation it started with is still current.
	generation atomic.Uint64
	storeMu    sync.Mutex
}

var _ domain.StatsSource = (*StatsCache)(nil)

// NewStatsCache builds the cache. memTTL bounds how stale the in-memory layer
// may get on instances that miss an invalidation. m may be nil.
func NewStatsCache(rdb *goredis.Client, feedback domain.FeedbackRepository, memTTL time.Duration, clock clockwork.Clock, m *metrics.CacheMetrics) *StatsCache {
	return &StatsCache{
		rdb:      rdb,
		feedback: feedback,
		mem:      newMemoryCache(memTTL, clock),
		clock:    clock,
		metrics:  m,
	}
}

// StartEvictionTimer periodically drops expired in-memory entries.
// Returns a stop function that should be deferred.
func (c *StatsCache) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.mem.evictExpired(); evicted > 0 {
					slog.Debug("Evicted expired stats cache entries", "count", evicted, "remaining", c.mem.size())
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (c *StatsCache) GlobalCounts(ctx context.Context) (domain.SentimentCounts, error) {
	if counts, ok := c.mem.get(statsCacheKey); ok {
		c.hit(layerMemory)
		return counts, nil
	}
	c.miss(layerMemory)

	v, err, _ := c.group.Do(statsCacheKey, func() (any, error) {
		gen := c.generation.Load()

		if counts, ok := c.getCached(ctx); ok {
			c.hit(layerRedis)
			c.storeIfCurrent(ctx, gen, counts, false)
			return counts, nil
		}
		c.miss(layerRedis)

		counts, err := c.feedback.CountBySentiment(ctx, nil)
		if err != nil {
			return domain.SentimentCounts{}, fmt.Errorf("failed to count feedback: %w", err)
		}

		c.storeIfCurrent(ctx, gen, counts, true)
		return counts, nil
	})
	if err != nil {
		return domain.SentimentCounts{}, err
	}
	return v.(domain.SentimentCounts), nil
}

// Invalidate drops the counts from both layers and tells other instances to
// drop their in-memory copy.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	c.dropLocal(originLocal)

	if err := c.rdb.Del(ctx, statsCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats cache: %w", err)
	}
	if err := c.rdb.Publish(ctx, statsInvalidationChannel, statsCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to publish stats invalidation: %w", err)
	}
	return nil
}

// dropLocal clears the in-memory counts and detaches any in-flight load so
// its result is neither stored nor shared with later callers.
func (c *StatsCache) dropLocal(origin string) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	if c.metrics != nil {
		c.metrics.Invalidations.WithLabelValues(origin).Inc()
	}

	c.generation.Add(1)
	c.group.Forget(statsCacheKey)
	c.mem.invalidate(statsCacheKey)
}

func (c *StatsCache) storeIfCurrent(ctx context.Context, gen uint64, counts domain.SentimentCounts, toRedis bool) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	if c.generation.Load() != gen {
		slog.DebugContext(ctx, "Discarding stats loaded before an invalidation")
		if c.metrics != nil {
			c.metrics.DiscardedLoads.Inc()
		}
		return
	}
	c.mem.set(statsCacheKey, counts)
	if toRedis {
		c.writeCache(ctx, counts)
	}
}

// Cached returns the counts held in Redis without falling through to the
// repository. ok is false when nothing is cached.
func (c *StatsCache) Cached(ctx context.Context) (counts domain.SentimentCounts, ok bool) {
	return c.getCached(ctx)
}

func (c *StatsCache) writeCache(ctx context.Context, counts domain.SentimentCounts) {
	encoded, err := json.Marshal(counts)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal stats for Redis cache", "error", err)
		return
	}

	if err := c.rdb.Set(ctx, statsCacheKey, encoded, statsCacheTTL).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to populate Redis stats cache", "error", err)
	}
}

func (c *StatsCache) getCached(ctx context.Context) (domain.SentimentCounts, bool) {
	data, err := c.rdb.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Redis stats cache GET failed", "error", err)
		}
		return domain.SentimentCounts{}, false
	}

	var counts domain.SentimentCounts
	if err := json.Unmarshal(data, &counts); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached stats", "error", err)
		return domain.SentimentCounts{}, false
	}
	return counts, true
}

func (c *StatsCache) hit(layer string) {
	if c.metrics != nil {
		c.metrics.Lookups.WithLabelValues(layer, "hit").Inc()
	}
}

func (c *StatsCache) miss(layer string) {
	if c.metrics != nil {
		c.metrics.Lookups.WithLabelValues(layer, "miss").Inc()
	}
}

// memoryCache is an in-memory L1 cache with TTL-based expiry.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryCacheEntry struct {
	counts    domain.SentimentCounts
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	return &memoryCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *memoryCache) get(key string) (domain.SentimentCounts, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return domain.SentimentCounts{}, false
	}
	return entry.counts, true
}

func (c *memoryCache) set(key string, counts domain.SentimentCounts) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryCacheEntry{counts: counts, expiresAt: c.clock.Now().Add(c.ttl)}
}

func (c *memoryCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}
