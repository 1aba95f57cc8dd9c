//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/kjstillabower/trip-planner/internal/cache"
	"github.com/kjstillabower/trip-planner/internal/forecast"
	"github.com/kjstillabower/trip-planner/internal/geocode"
)

// IntegrationTestConfig holds configuration for tests against live providers.
type IntegrationTestConfig struct {
	UserAgent     string
	ForecastURL   string
	NominatimURL  string
	GoogleAPIKey  string
	CacheBackend  string // "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads live-provider settings from the environment.
// Skips the test unless LIVE_PROVIDERS=1, so CI never hits public APIs by
// accident.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	if os.Getenv("LIVE_PROVIDERS") != "1" {
		t.Skip("LIVE_PROVIDERS not set, skipping live provider test")
	}

	userAgent := os.Getenv("GEOCODING_USER_AGENT")
	if userAgent == "" {
		userAgent = "trip-planner-integration-tests"
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}

	return IntegrationTestConfig{
		UserAgent:     userAgent,
		ForecastURL:   os.Getenv("FORECAST_URL"),
		NominatimURL:  os.Getenv("NOMINATIM_URL"),
		GoogleAPIKey:  os.Getenv("GEOCODING_API_KEY"),
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationResolver wires a forecast resolver to the live geocoding
// chain and forecast provider. The cleanup func closes the cache backend.
func SetupIntegrationResolver(t *testing.T, cfg IntegrationTestConfig) (*forecast.Resolver, cache.Cache, func()) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	chain := geocode.NewDefaultChain(geocode.Config{
		NominatimURL: cfg.NominatimURL,
		UserAgent:    cfg.UserAgent,
		GoogleAPIKey: cfg.GoogleAPIKey,
		Timeout:      10 * time.Second,
	}, logger)

	var cacheSvc cache.Cache
	cleanup := func() {}
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil {
			cacheSvc = mc
			cleanup = func() { _ = mc.Close() }
			t.Logf("using memcached at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("memcached not available (%v), using in-memory cache", err)
		}
	}
	if cacheSvc == nil {
		cacheSvc = cache.NewInMemoryCache()
	}

	resolver := forecast.NewResolver(
		chain,
		forecast.NewOpenMeteoClient(cfg.ForecastURL, 10*time.Second),
		cacheSvc,
		forecast.Config{CacheTTL: 5 * time.Minute, CacheType: cfg.CacheBackend},
		logger,
	)
	return resolver, cacheSvc, cleanup
}

// SetupIntegrationGeocoder returns the live geocoding chain on its own.
func SetupIntegrationGeocoder(t *testing.T, cfg IntegrationTestConfig) *geocode.Chain {
	t.Helper()
	return geocode.NewDefaultChain(geocode.Config{
		NominatimURL: cfg.NominatimURL,
		UserAgent:    cfg.UserAgent,
		GoogleAPIKey: cfg.GoogleAPIKey,
		Timeout:      10 * time.Second,
	}, zaptest.NewLogger(t))
}
