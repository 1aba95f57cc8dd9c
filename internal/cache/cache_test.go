package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

func testForecast() schema.Forecast {
	return schema.Forecast{
		Latitude:  48.85,
		Longitude: 2.35,
		Days: []schema.ForecastDay{
			{Date: "2026-07-01", TemperatureMax: 24, TemperatureMin: 15, WeatherCode: 1},
		},
	}
}

// TestInMemoryCache_GetSet verifies that Set stores values and Get retrieves
// them correctly with the expected data.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	val := testForecast()
	if err := c.Set(ctx, "paris|2026-07-01|2026-07-01", val, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "paris|2026-07-01|2026-07-01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.Latitude != val.Latitude || len(got.Days) != 1 || got.Days[0].Date != "2026-07-01" {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

func TestInMemoryCache_Get_Miss(t *testing.T) {
	c := NewInMemoryCache()
	_, ok, err := c.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Get_Expired verifies that entries past their TTL are
// reported as misses and evicted.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", testForecast(), 5*time.Minute)

	now = now.Add(4 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("Get() inside grace window ok = false")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get() at expiry ok = true, want false")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, expired entry not evicted", c.Len())
	}
}

func TestInMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	_ = c.Set(ctx, "k", testForecast(), time.Minute)

	got, _, _ := c.Get(ctx, "k")
	got.Days[0].Date = "mutated"

	again, _, _ := c.Get(ctx, "k")
	if again.Days[0].Date != "2026-07-01" {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestInMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "k", testForecast(), time.Minute)
			_, _, _ = c.Get(ctx, "k")
		}()
	}
	wg.Wait()
}

func TestMemcachedCache_KeyIsSafe(t *testing.T) {
	c, _ := NewMemcachedCache("", 0, 0)
	k := c.key("name=louvre museum|city=paris|country=france|2026-07-01|2026-07-03")
	if len(k) > 250 {
		t.Errorf("key length %d exceeds memcached limit", len(k))
	}
	for _, r := range k {
		if r <= ' ' || r == 0x7f {
			t.Fatalf("key %q contains control or space characters", k)
		}
	}
	if k == c.key("other") {
		t.Error("distinct inputs produced the same key")
	}
}

func TestParseAddrs(t *testing.T) {
	got := parseAddrs(" a:1 , ,b:2")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Errorf("parseAddrs() = %v", got)
	}
}
