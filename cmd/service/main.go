package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/trip-planner/internal/cache"
	"github.com/kjstillabower/trip-planner/internal/config"
	"github.com/kjstillabower/trip-planner/internal/forecast"
	"github.com/kjstillabower/trip-planner/internal/geocode"
	httphandler "github.com/kjstillabower/trip-planner/internal/http"
	"github.com/kjstillabower/trip-planner/internal/lifecycle"
	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/schema"
	"github.com/kjstillabower/trip-planner/internal/traffic"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	chain := geocode.NewDefaultChain(geocode.Config{
		NominatimURL: cfg.NominatimURL,
		UserAgent:    cfg.GeocodingUserAgent,
		GoogleURL:    cfg.GoogleGeocodeURL,
		GoogleAPIKey: cfg.GeocodingAPIKey,
		Timeout:      cfg.GeocodingTimeout,
	}, logger)
	logger.Info("geocoding chain", zap.Strings("providers", chain.Providers()))

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	resolver := forecast.NewResolver(
		chain,
		forecast.NewOpenMeteoClient(cfg.ForecastURL, cfg.ForecastTimeout),
		cacheSvc,
		forecast.Config{CacheTTL: cfg.CacheTTL, CacheType: cfg.CacheBackend, CoalesceTimeout: cfg.CoalesceTimeout},
		logger,
	)

	tracker := traffic.NewTracker()
	state := &lifecycle.State{}
	healthConfig := &httphandler.HealthConfig{
		Thresholds: traffic.Thresholds{
			Window:             cfg.HealthWindow,
			OverloadDenials:    cfg.OverloadDenials(),
			DegradedErrorRate:  float64(cfg.DegradedErrorPct) / 100,
			DegradedMinSamples: cfg.DegradedMinSamples,
		},
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(resolver, tracker, state, healthConfig, logger, cfg.MaxFieldLength)
	inFlight := &httphandler.InFlightTracker{}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
		InFlight:       inFlight,
	}, logger)

	warmer := cache.NewCacheWarmer(resolver, logger)
	if cfg.WarmCache {
		if err := warmer.Start(trackedTrips(cfg.TrackedTrips), cfg.WarmInterval); err != nil {
			logger.Error("cache warming", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	state.SetShuttingDown(true)
	warmer.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

func trackedTrips(in []config.TrackedTrip) []cache.TrackedTrip {
	out := make([]cache.TrackedTrip, 0, len(in))
	for _, t := range in {
		out = append(out, cache.TrackedTrip{
			Name: t.Name,
			Location: schema.Location{
				City:      t.City,
				Region:    t.Region,
				Country:   t.Country,
				Latitude:  t.Latitude,
				Longitude: t.Longitude,
			},
			Start: t.Start,
			End:   t.End,
		})
	}
	return out
}
