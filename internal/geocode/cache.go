package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"vendordesk/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "vendordesk:geocode:"

// Cache decorates a Provider with a Redis-backed response cache.
// Redis failures are logged and fall through to the wrapped provider.
type Cache struct {
	next   Provider
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *log.Logger
}

// NewCache wraps next. Only successful, non-empty lookups are cached.
func NewCache(next Provider, rdb redis.Cmdable, ttl time.Duration, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) Reverse(ctx context.Context, lat, lon float64) (domain.Address, error) {
	key := reverseKey(lat, lon)
	var cached domain.Address
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	addr, err := c.next.Reverse(ctx, lat, lon)
	if err != nil {
		return domain.Address{}, err
	}
	c.store(ctx, key, addr)
	return addr, nil
}

func (c *Cache) SearchPostalCode(ctx context.Context, code, countryCode string) ([]domain.Address, error) {
	key := postalKey(code, countryCode)
	var cached []domain.Address
	if c.load(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}
	addrs, err := c.next.SearchPostalCode(ctx, code, countryCode)
	if err != nil {
		return nil, err
	}
	if len(addrs) > 0 {
		c.store(ctx, key, addrs)
	}
	return addrs, nil
}

func (c *Cache) load(ctx context.Context, key string, out any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("geocode cache: get key=%s error=%v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Printf("geocode cache: decode key=%s error=%v", key, err)
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Printf("geocode cache: set key=%s error=%v", key, err)
	}
}

// reverseKey rounds to 5 decimals (about a metre), well inside what reverse lookups distinguish.
func reverseKey(lat, lon float64) string {
	return fmt.Sprintf("%sreverse:%.5f,%.5f", keyPrefix, lat, lon)
}

func postalKey(code, countryCode string) string {
	return fmt.Sprintf("%spostal:%s:%s", keyPrefix, strings.ToLower(strings.TrimSpace(countryCode)), strings.TrimSpace(code))
}
