package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

// Cache holds resolved forecasts for a short grace window. Get returns cached
// data if present and not expired, Set stores data with TTL.
type Cache interface {
	Get(ctx context.Context, key string) (schema.Forecast, bool, error)
	Set(ctx context.Context, key string, value schema.Forecast, ttl time.Duration) error
}

// InMemoryCache implements Cache using a mutex-guarded map with TTL-based
// expiration. Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
	now  func() time.Time
}

type cacheEntry struct {
	value     schema.Forecast
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get returns (data, true, nil) on a hit and (zero, false, nil) on a miss or
// expiry. The returned forecast does not share its day slice with the cache.
func (c *InMemoryCache) Get(ctx context.Context, key string) (schema.Forecast, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return schema.Forecast{}, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.data, key)
		return schema.Forecast{}, false, nil
	}
	return cloneForecast(entry.value), true, nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value schema.Forecast, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     cloneForecast(value),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func cloneForecast(f schema.Forecast) schema.Forecast {
	f.Days = append([]schema.ForecastDay(nil), f.Days...)
	return f
}
