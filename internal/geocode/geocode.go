// Package geocode resolves free-text locations to coordinates through an
// ordered chain of providers.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/schema"
)

// ErrNoMatch means the provider answered and confirmed it knows no such place.
var ErrNoMatch = errors.New("no geocoding match")

// Lookup is one geocoding provider.
type Lookup interface {
	Name() string
	Lookup(ctx context.Context, query string) (schema.Coordinates, error)
}

// Strategy pairs a provider with the query it should be asked.
type Strategy struct {
	Lookup Lookup
	Query  func(schema.Location) string
}

// CityQuery is the short query: city and country, or name and country when no
// city is set.
func CityQuery(loc schema.Location) string {
	place := strings.TrimSpace(loc.City)
	if place == "" {
		place = strings.TrimSpace(loc.Name)
	}
	return join(place, loc.Country)
}

// FullQuery joins every present text field.
func FullQuery(loc schema.Location) string {
	return join(loc.Name, loc.City, loc.Region, loc.Country)
}

func join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

type link struct {
	strategy Strategy
	breaker  *gobreaker.CircuitBreaker
}

// Chain tries strategies in order until one yields coordinates. Provider
// failures never escape a step: every failure, panic included, is a miss.
type Chain struct {
	links  []link
	logger *zap.Logger
}

func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	logger = observability.OrNop(logger).With(zap.String("component", "geocode"))
	links := make([]link, 0, len(strategies))
	for _, s := range strategies {
		links = append(links, link{strategy: s, breaker: newBreaker(s.Lookup.Name(), logger)})
	}
	return &Chain{links: links, logger: logger}
}

func newBreaker(provider string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	component := "geocode_" + provider
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        component,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerTransitionsTotal.WithLabelValues(component, from.String(), to.String()).Inc()
			logger.Warn("geocoding circuit breaker state change",
				zap.String("provider", provider),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Providers lists provider names in chain order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.links))
	for i, l := range c.links {
		names[i] = l.strategy.Lookup.Name()
	}
	return names
}

// Resolve returns the first coordinates any strategy yields.
func (c *Chain) Resolve(ctx context.Context, loc schema.Location) (schema.Coordinates, bool) {
	for _, l := range c.links {
		if coords, ok := c.attempt(ctx, l, loc); ok {
			return coords, true
		}
	}
	return schema.Coordinates{}, false
}

// attempt is the catch-and-convert boundary around one provider call. The
// outcome is reported as "no result" either way, but the log and metric keep a
// confirmed no-match apart from a provider failure.
func (c *Chain) attempt(ctx context.Context, l link, loc schema.Location) (coords schema.Coordinates, ok bool) {
	provider := l.strategy.Lookup.Name()
	query := l.strategy.Query(loc)
	if query == "" {
		observability.GeocodeAttemptsTotal.WithLabelValues(provider, "skipped").Inc()
		return schema.Coordinates{}, false
	}

	defer func() {
		if r := recover(); r != nil {
			observability.GeocodeAttemptsTotal.WithLabelValues(provider, "error").Inc()
			c.logger.Error("geocoding provider panicked",
				zap.String("provider", provider),
				zap.String("query", query),
				zap.String("panic", fmt.Sprint(r)),
			)
			coords, ok = schema.Coordinates{}, false
		}
	}()

	// A confirmed no-match is a healthy provider; keep it out of the breaker's
	// failure counts.
	result, err := l.breaker.Execute(func() (interface{}, error) {
		found, err := l.strategy.Lookup.Lookup(ctx, query)
		if errors.Is(err, ErrNoMatch) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return found, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		observability.GeocodeAttemptsTotal.WithLabelValues(provider, "open").Inc()
		c.logger.Warn("geocoding provider skipped, circuit open", zap.String("provider", provider))
		return schema.Coordinates{}, false
	case err != nil:
		observability.GeocodeAttemptsTotal.WithLabelValues(provider, "error").Inc()
		c.logger.Warn("geocoding provider failed",
			zap.String("provider", provider),
			zap.String("query", query),
			zap.String("result", "error"),
			zap.Error(err),
		)
		return schema.Coordinates{}, false
	case result == nil:
		observability.GeocodeAttemptsTotal.WithLabelValues(provider, "no_match").Inc()
		c.logger.Info("geocoding provider found no match",
			zap.String("provider", provider),
			zap.String("query", query),
			zap.String("result", "no_match"),
		)
		return schema.Coordinates{}, false
	}

	found := result.(schema.Coordinates)
	observability.GeocodeAttemptsTotal.WithLabelValues(provider, "hit").Inc()
	c.logger.Debug("geocoded",
		zap.String("provider", provider),
		zap.String("query", query),
		zap.Float64("latitude", found.Latitude),
		zap.Float64("longitude", found.Longitude),
	)
	return found, true
}

// Config selects and configures the default providers.
type Config struct {
	NominatimURL string
	UserAgent    string
	GoogleURL    string
	GoogleAPIKey string
	Timeout      time.Duration
}

// NewDefaultChain is Nominatim with the city query, then Google with the full
// query when an API key is configured.
func NewDefaultChain(cfg Config, logger *zap.Logger) *Chain {
	strategies := []Strategy{
		{Lookup: NewNominatimClient(cfg.NominatimURL, cfg.UserAgent, cfg.Timeout), Query: CityQuery},
	}
	if cfg.GoogleAPIKey != "" {
		strategies = append(strategies, Strategy{
			Lookup: NewGoogleClient(cfg.GoogleURL, cfg.GoogleAPIKey, cfg.Timeout),
			Query:  FullQuery,
		})
	}
	return NewChain(logger, strategies...)
}
