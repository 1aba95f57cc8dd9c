package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/trip-planner/internal/observability"
)

// RouterConfig carries the middleware settings for NewRouter.
type RouterConfig struct {
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
	InFlight       *InFlightTracker
}

// NewRouter wires the gateway routes. Rate limiting and the request timeout
// apply to /forecast only.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(observability.OrNop(logger)))
	router.Use(MetricsMiddleware(cfg.InFlight))
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())

	forecastRouter := router.Path("/forecast").Subrouter()
	forecastRouter.Use(RateLimitMiddleware(cfg.Limiter, h.traffic))
	if cfg.RequestTimeout > 0 {
		forecastRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	forecastRouter.Methods(http.MethodGet).HandlerFunc(h.GetForecast)
	return router
}
