package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/schema"
)

// ForecastFetcher is implemented by the forecast resolver. Declared here to
// avoid a dependency cycle.
type ForecastFetcher interface {
	Resolve(ctx context.Context, loc schema.Location, start, end string) (schema.Forecast, error)
}

// TrackedTrip is a trip whose forecast is kept warm.
type TrackedTrip struct {
	Name     string
	Location schema.Location
	Start    string
	End      string
}

// CacheWarmer resolves forecasts for tracked trips ahead of requests.
type CacheWarmer struct {
	fetcher   ForecastFetcher
	logger    *zap.Logger
	timeout   time.Duration
	scheduler *gocron.Scheduler
}

func NewCacheWarmer(fetcher ForecastFetcher, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{
		fetcher: fetcher,
		logger:  observability.OrNop(logger).With(zap.String("component", "cache_warmer")),
		timeout: 30 * time.Second,
	}
}

// Warm resolves every trip concurrently. Returns an aggregated error if any
// trip failed.
func (w *CacheWarmer) Warm(ctx context.Context, trips []TrackedTrip) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("trips", len(trips)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(trips))
	for _, trip := range trips {
		wg.Add(1)
		go func(trip TrackedTrip) {
			defer wg.Done()
			if _, err := w.fetcher.Resolve(ctx, trip.Location, trip.Start, trip.End); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", trip.Name, err)
			}
		}(trip)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete",
		zap.Int("trips", len(trips)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration),
	)
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// Start schedules Warm every interval, beginning immediately. Trips whose end
// date has passed are skipped on each run.
func (w *CacheWarmer) Start(trips []TrackedTrip, interval time.Duration) error {
	if len(trips) == 0 {
		w.logger.Info("no tracked trips configured; cache warming disabled")
		return nil
	}
	if interval <= 0 {
		return fmt.Errorf("cache warming interval must be positive, got %s", interval)
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		active := Upcoming(trips, time.Now().UTC())
		if err := w.Warm(ctx, active); err != nil {
			w.logger.Warn("periodic cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cache warming: %w", err)
	}
	w.scheduler = s
	s.StartAsync()
	return nil
}

// Stop halts the schedule. Safe to call when Start scheduled nothing.
func (w *CacheWarmer) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}

// Upcoming drops trips that already ended before today.
func Upcoming(trips []TrackedTrip, now time.Time) []TrackedTrip {
	today := now.Format(time.DateOnly)
	out := make([]TrackedTrip, 0, len(trips))
	for _, t := range trips {
		end, ok := schema.CalendarDate(t.End)
		if ok && end < today {
			continue
		}
		out = append(out, t)
	}
	return out
}
