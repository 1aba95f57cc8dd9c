// Package forecast turns a trip location and date range into a daily forecast.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/cache"
	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/schema"
)

// Geocoder resolves a location to coordinates. *geocode.Chain implements it.
type Geocoder interface {
	Resolve(ctx context.Context, loc schema.Location) (schema.Coordinates, bool)
}

// DailyFetcher fetches the raw daily block. *OpenMeteoClient implements it.
type DailyFetcher interface {
	Daily(ctx context.Context, coords schema.Coordinates, start, end string) (Daily, error)
}

// Config tunes caching and coalescing. Zero values use defaults.
type Config struct {
	CacheTTL        time.Duration
	CacheType       string
	CoalesceTimeout time.Duration
}

const (
	defaultCacheTTL        = 5 * time.Minute
	defaultCoalesceTimeout = 30 * time.Second
)

// Resolver implements the forecast lookup with a short cache-aside grace
// window and request coalescing.
type Resolver struct {
	geocoder  Geocoder
	daily     DailyFetcher
	cache     cache.Cache
	cacheType string
	ttl       time.Duration
	coalescer *requestCoalescer[schema.Forecast]
	logger    *zap.Logger
}

// NewResolver creates a Resolver. c may be nil to disable caching.
func NewResolver(geocoder Geocoder, daily DailyFetcher, c cache.Cache, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.CoalesceTimeout <= 0 {
		cfg.CoalesceTimeout = defaultCoalesceTimeout
	}
	if cfg.CacheType == "" {
		cfg.CacheType = "in_memory"
	}
	return &Resolver{
		geocoder:  geocoder,
		daily:     daily,
		cache:     c,
		cacheType: cfg.CacheType,
		ttl:       cfg.CacheTTL,
		coalescer: newRequestCoalescer[schema.Forecast](cfg.CoalesceTimeout),
		logger:    observability.OrNop(logger).With(zap.String("component", "forecast")),
	}
}

// Resolve returns the daily forecast for loc over [start, end]. Dates may carry
// a time component; only the calendar date is used. Failures are typed:
// ErrInvalidRange, *GeocodingError, *ForecastUnavailableError, a
// *schema.ValidationError, or a wrapped provider error.
func (r *Resolver) Resolve(ctx context.Context, loc schema.Location, start, end string) (schema.Forecast, error) {
	from, okFrom := schema.CalendarDate(start)
	to, okTo := schema.CalendarDate(end)
	if !okFrom || !okTo || to < from {
		r.record("invalid_range")
		return schema.Forecast{}, fmt.Errorf("%w: %q to %q", ErrInvalidRange, start, end)
	}

	key := cacheKey(loc, from, to)
	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			observability.CacheErrorsTotal.WithLabelValues("get").Inc()
			r.logger.Warn("forecast cache get failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			observability.CacheHitsTotal.WithLabelValues(r.cacheType).Inc()
			r.record("cache_hit")
			return cached, nil
		}
	}

	fc, err := r.coalescer.GetOrDo(ctx, key, func(ctx context.Context) (schema.Forecast, error) {
		fc, err := r.resolve(ctx, loc, from, to)
		if err != nil {
			return schema.Forecast{}, err
		}
		if r.cache != nil {
			if err := r.cache.Set(ctx, key, fc, r.ttl); err != nil {
				observability.CacheErrorsTotal.WithLabelValues("set").Inc()
				r.logger.Warn("forecast cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
		return fc, nil
	})
	r.record(outcome(err))
	if err != nil {
		return schema.Forecast{}, err
	}
	return fc, nil
}

func (r *Resolver) resolve(ctx context.Context, loc schema.Location, start, end string) (schema.Forecast, error) {
	coords, explicit := loc.Coordinates()
	if !explicit {
		var ok bool
		coords, ok = r.geocoder.Resolve(ctx, loc)
		if !ok {
			return schema.Forecast{}, &GeocodingError{Location: describe(loc)}
		}
	}

	daily, err := r.daily.Daily(ctx, coords, start, end)
	if err != nil {
		r.logger.Warn("forecast provider failed",
			zap.Float64("latitude", coords.Latitude),
			zap.Float64("longitude", coords.Longitude),
			zap.Error(err),
		)
		return schema.Forecast{}, fmt.Errorf("fetch forecast: %w", err)
	}

	days := zipDays(daily, start, end)
	if len(days) == 0 {
		return schema.Forecast{}, &ForecastUnavailableError{Start: start, End: end}
	}

	fc := schema.Forecast{Latitude: coords.Latitude, Longitude: coords.Longitude, Days: days}
	if err := schema.Validate("forecast", fc); err != nil {
		return schema.Forecast{}, err
	}
	return fc, nil
}

// zipDays combines the parallel arrays by index. A day is kept only when its
// date is inside [start, end] and max, min and code are present. A missing
// precipitation sum counts as zero.
func zipDays(d Daily, start, end string) []schema.ForecastDay {
	days := make([]schema.ForecastDay, 0, len(d.Time))
	for i, t := range d.Time {
		date, ok := schema.CalendarDate(t)
		if !ok || date < start || date > end {
			continue
		}
		hi, lo, code := floatAt(d.TemperatureMax, i), floatAt(d.TemperatureMin, i), intAt(d.WeatherCode, i)
		if hi == nil || lo == nil || code == nil {
			continue
		}
		day := schema.ForecastDay{
			Date:           date,
			TemperatureMax: *hi,
			TemperatureMin: *lo,
			WeatherCode:    *code,
		}
		if p := floatAt(d.PrecipitationSum, i); p != nil {
			day.PrecipitationSum = *p
		}
		days = append(days, day)
	}
	return days
}

func floatAt(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func intAt(s []*int, i int) *int {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func (r *Resolver) record(outcome string) {
	observability.ForecastResolutionsTotal.WithLabelValues(outcome).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLocationNotFound):
		return "location_not_found"
	case errors.Is(err, ErrForecastUnavailable):
		return "forecast_unavailable"
	case errors.Is(err, schema.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}

// cacheKey covers every input, so changing any of them is a different entry.
func cacheKey(loc schema.Location, start, end string) string {
	parts := []string{
		"name=" + normalize(loc.Name),
		"city=" + normalize(loc.City),
		"region=" + normalize(loc.Region),
		"country=" + normalize(loc.Country),
	}
	if c, ok := loc.Coordinates(); ok {
		parts = append(parts,
			"lat="+strconv.FormatFloat(c.Latitude, 'f', -1, 64),
			"lon="+strconv.FormatFloat(c.Longitude, 'f', -1, 64),
		)
	}
	parts = append(parts, start, end)
	return strings.Join(parts, "|")
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func describe(loc schema.Location) string {
	var parts []string
	for _, p := range []string{loc.Name, loc.City, loc.Region, loc.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
