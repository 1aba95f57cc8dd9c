package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/trip-planner/internal/forecast"
	"github.com/kjstillabower/trip-planner/internal/lifecycle"
	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/presentation"
	"github.com/kjstillabower/trip-planner/internal/schema"
	"github.com/kjstillabower/trip-planner/internal/traffic"
	"github.com/kjstillabower/trip-planner/internal/validation"
)

const defaultMaxFieldLength = 100

// ForecastResolver is implemented by *forecast.Resolver.
type ForecastResolver interface {
	Resolve(ctx context.Context, loc schema.Location, start, end string) (schema.Forecast, error)
}

// HealthConfig holds thresholds and probes for the health handler.
type HealthConfig struct {
	Thresholds traffic.Thresholds
	Version    string
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	resolver       ForecastResolver
	traffic        *traffic.Tracker
	lifecycle      *lifecycle.State
	healthConfig   *HealthConfig
	logger         *zap.Logger
	maxFieldLength int
	now            func() time.Time

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. maxFieldLength bounds each location text
// field in runes; 0 uses the default.
func NewHandler(
	resolver ForecastResolver,
	tracker *traffic.Tracker,
	state *lifecycle.State,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	maxFieldLength int,
) *Handler {
	if tracker == nil {
		tracker = traffic.NewTracker()
	}
	if state == nil {
		state = &lifecycle.State{}
	}
	if maxFieldLength <= 0 {
		maxFieldLength = defaultMaxFieldLength
	}
	return &Handler{
		resolver:       resolver,
		traffic:        tracker,
		lifecycle:      state,
		healthConfig:   healthConfig,
		logger:         observability.OrNop(logger),
		maxFieldLength: maxFieldLength,
		now:            time.Now,
	}
}

type forecastResponse struct {
	State    presentation.ForecastState `json:"state"`
	Forecast *schema.Forecast           `json:"forecast,omitempty"`
	Error    *errorBody                 `json:"error,omitempty"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// GetForecast handles GET /forecast?name&city&region&country&lat&lon&start&end.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc, err := validation.ValidateLocation(validation.LocationQuery{
		Name:    q.Get("name"),
		City:    q.Get("city"),
		Region:  q.Get("region"),
		Country: q.Get("country"),
		Lat:     q.Get("lat"),
		Lon:     q.Get("lon"),
	}, h.maxFieldLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}
	start, err := validation.ValidateDate("start", q.Get("start"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}
	end, err := validation.ValidateDate("end", q.Get("end"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	if state, run := presentation.Precheck(loc, start, end, h.now().UTC()); !run {
		status, code := http.StatusBadRequest, "LOCATION_REQUIRED"
		switch state {
		case presentation.StateNoDates:
			code = "DATES_REQUIRED"
		case presentation.StatePastDates:
			status, code = http.StatusUnprocessableEntity, "PAST_DATES"
		}
		writeForecastError(w, r, status, state, code)
		return
	}

	fc, err := h.resolver.Resolve(r.Context(), loc, start, end)
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}
	h.traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, forecastResponse{State: presentation.StateReady, Forecast: &fc})
}

func (h *Handler) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFrom(r.Context(), h.logger)
	if errors.Is(err, forecast.ErrInvalidRange) {
		writeError(w, r, http.StatusBadRequest, "INVALID_DATE_RANGE", "end date is before start date")
		return
	}

	state := presentation.ForecastStateFor(err)
	switch state {
	case presentation.StateLocationNotFound:
		h.traffic.RecordSuccess()
		writeForecastError(w, r, http.StatusNotFound, state, "LOCATION_NOT_FOUND")
	case presentation.StateForecastUnavailable:
		h.traffic.RecordSuccess()
		writeForecastError(w, r, http.StatusNotFound, state, "FORECAST_UNAVAILABLE")
	default:
		h.traffic.RecordError()
		logger.Debug("forecast resolution failed", zap.Error(err))
		writeForecastError(w, r, http.StatusServiceUnavailable, state, "FORECAST_ERROR")
	}
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"forecastApi": "healthy"}
	if result.status == "degraded" {
		checks["forecastApi"] = "unhealthy"
	}
	version := "dev"
	if h.healthConfig != nil {
		if h.healthConfig.Version != "" {
			version = h.healthConfig.Version
		}
		if h.healthConfig.CachePing != nil {
			checks["cache"] = "healthy"
			if err := h.healthConfig.CachePing(); err != nil {
				checks["cache"] = "unhealthy"
			}
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "trip-planner-gateway",
		"version":   version,
		"checks":    checks,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if h.lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.traffic.Overloaded(h.healthConfig.Thresholds) {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	if h.traffic.Degraded(h.healthConfig.Thresholds) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": errorBody{
			Code:      code,
			Message:   message,
			RequestID: observability.CorrelationID(r.Context()),
		},
	})
}

// writeForecastError is writeError plus the forecast state, with the state's
// user-facing copy as the message.
func writeForecastError(w http.ResponseWriter, r *http.Request, status int, state presentation.ForecastState, code string) {
	writeJSON(w, status, forecastResponse{
		State: state,
		Error: &errorBody{
			Code:      code,
			Message:   presentation.Describe(state),
			RequestID: observability.CorrelationID(r.Context()),
		},
	})
}
