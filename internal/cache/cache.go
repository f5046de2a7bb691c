package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/agroclima/internal/meteo"
)

// DefaultTTL is how long a weather reading stays fresh.
const DefaultTTL = 10 * time.Minute

const keyPrefix = "weather:"

// Cache stores CityWeather readings in Redis keyed by normalized city name.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache. A non-positive ttl falls back to DefaultTTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Key returns the Redis key for city.
func Key(city string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(city))
}

// Get returns the cached reading for city, or nil, nil on a miss.
func (c *Cache) Get(ctx context.Context, city string) (*meteo.CityWeather, error) {
	raw, err := c.client.Get(ctx, Key(city)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s from cache: %w", Key(city), err)
	}

	var cw meteo.CityWeather
	if err := json.Unmarshal(raw, &cw); err != nil {
		return nil, fmt.Errorf("decoding cached %s: %w", Key(city), err)
	}
	return &cw, nil
}

// Set stores cw under city for the configured TTL. A nil reading is ignored.
func (c *Cache) Set(ctx context.Context, city string, cw *meteo.CityWeather) error {
	if cw == nil {
		return nil
	}

	b, err := json.Marshal(cw)
	if err != nil {
		return fmt.Errorf("encoding %s for cache: %w", Key(city), err)
	}
	if err := c.client.Set(ctx, Key(city), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing %s to cache: %w", Key(city), err)
	}
	return nil
}

// Delete drops the cached reading for city.
func (c *Cache) Delete(ctx context.Context, city string) error {
	if err := c.client.Del(ctx, Key(city)).Err(); err != nil {
		return fmt.Errorf("deleting %s from cache: %w", Key(city), err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
