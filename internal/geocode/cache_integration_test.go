package geocode

import (
	"context"
	"os"
	"testing"
	"time"

	"vendordesk/internal/domain"

	"github.com/redis/go-redis/v9"
)

func TestCache_RedisRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	code := "560001"
	defer rdb.Del(ctx, postalKey(code, "in"))

	provider := &stubProvider{postal: []domain.Address{{Pincode: code, State: "Karnataka", District: "Bangalore Urban", Country: "India"}}}
	cache := NewCache(provider, rdb, time.Minute, nil)

	for i := 0; i < 2; i++ {
		got, err := cache.SearchPostalCode(ctx, code, "IN")
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if len(got) != 1 || got[0].District != "Bangalore Urban" {
			t.Fatalf("lookup %d: unexpected result %+v", i, got)
		}
	}
	if provider.postalCalls != 1 {
		t.Fatalf("expected one provider call, got %d", provider.postalCalls)
	}
	ttl, err := rdb.TTL(ctx, postalKey(code, "in")).Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("expected ttl on cached key, got %v err=%v", ttl, err)
	}
}
