package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/redis"
)

// DefaultSeatCacheTTL bounds how stale a cached seat list may be.
const DefaultSeatCacheTTL = 30 * time.Second

// SeatFetcher loads the free seats of an event from the provider.
type SeatFetcher interface {
	FetchSeats(ctx context.Context, eventID uuid.UUID) ([]string, error)
}

// SeatCache stores seat lists for a short time. Cache failures are never
// fatal: a failed read is a miss and a failed write is dropped.
type SeatCache interface {
	Get(ctx context.Context, eventID uuid.UUID) ([]string, bool)
	Set(ctx context.Context, eventID uuid.UUID, seats []string)
}

// SeatLookup serves seat lists from the cache and falls back to the
// provider on a miss.
type SeatLookup struct {
	fetcher SeatFetcher
	cache   SeatCache
}

// NewSeatLookup wires fetcher behind cache. A nil cache disables caching.
func NewSeatLookup(fetcher SeatFetcher, cache SeatCache) *SeatLookup {
	return &SeatLookup{fetcher: fetcher, cache: cache}
}

func (l *SeatLookup) Seats(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	if l.cache != nil {
		if seats, ok := l.cache.Get(ctx, eventID); ok {
			return seats, nil
		}
	}
	seats, err := l.fetcher.FetchSeats(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		l.cache.Set(ctx, eventID, seats)
	}
	return seats, nil
}

type seatStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SeatsKey(eventID string) string
}

// RedisSeatCache shares seat lists between replicas through Redis.
type RedisSeatCache struct {
	store seatStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewRedisSeatCache(store seatStore, ttl time.Duration, logg *logger.Logger) *RedisSeatCache {
	if ttl <= 0 {
		ttl = DefaultSeatCacheTTL
	}
	return &RedisSeatCache{store: store, ttl: ttl, logg: logg}
}

func (c *RedisSeatCache) Get(ctx context.Context, eventID uuid.UUID) ([]string, bool) {
	raw, err := c.store.Get(ctx, c.store.SeatsKey(eventID.String()))
	if err != nil {
		if !errors.Is(err, redis.ErrMiss) {
			c.warn(ctx, eventID, "seat cache read failed", err)
		}
		return nil, false
	}
	var seats []string
	if err := json.Unmarshal([]byte(raw), &seats); err != nil {
		c.warn(ctx, eventID, "seat cache entry unreadable", err)
		return nil, false
	}
	return seats, true
}

func (c *RedisSeatCache) Set(ctx context.Context, eventID uuid.UUID, seats []string) {
	raw, err := json.Marshal(seats)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, c.store.SeatsKey(eventID.String()), string(raw), c.ttl); err != nil {
		c.warn(ctx, eventID, "seat cache write failed", err)
	}
}

func (c *RedisSeatCache) warn(ctx context.Context, eventID uuid.UUID, msg string, err error) {
	if c.logg == nil {
		return
	}
	ctx = c.logg.WithFields(ctx, map[string]any{"event_id": eventID.String(), "error": err.Error()})
	c.logg.Warn(ctx, msg)
}

type seatEntry struct {
	seats     []string
	expiresAt time.Time
}

// MemorySeatCache keeps seat lists in process. Used when Redis is not
// configured. Expired entries are dropped on read and swept at most once per
// TTL on write.
type MemorySeatCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[uuid.UUID]seatEntry
	lastSweep time.Time
}

func NewMemorySeatCache(ttl time.Duration) *MemorySeatCache {
	if ttl <= 0 {
		ttl = DefaultSeatCacheTTL
	}
	return &MemorySeatCache{ttl: ttl, now: time.Now, entries: make(map[uuid.UUID]seatEntry)}
}

func (c *MemorySeatCache) Get(_ context.Context, eventID uuid.UUID) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[eventID]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, eventID)
		return nil, false
	}
	return append([]string(nil), entry.seats...), true
}

func (c *MemorySeatCache) Set(_ context.Context, eventID uuid.UUID, seats []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		for id, entry := range c.entries {
			if !now.Before(entry.expiresAt) {
				delete(c.entries, id)
			}
		}
		c.lastSweep = now
	}
	c.entries[eventID] = seatEntry{
		seats:     append([]string(nil), seats...),
		expiresAt: now.Add(c.ttl),
	}
}

// Len reports how many entries are held, expired ones included.
func (c *MemorySeatCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
