// Package presentation maps client-core failures to the small set of states a
// user interface shows.
package presentation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kjstillabower/trip-planner/internal/apiclient"
	"github.com/kjstillabower/trip-planner/internal/forecast"
	"github.com/kjstillabower/trip-planner/internal/schema"
)

// Kind is how a request failure is presented.
type Kind string

const (
	KindNone          Kind = ""
	KindRetry         Kind = "retry"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindGeneric       Kind = "generic"
)

// Classify picks the presentation for a request error. Retriable covers
// network failures, deadlines, 408, 429 and 5xx.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, apiclient.ErrMisconfigured) {
		return KindConfiguration
	}
	if errors.Is(err, apiclient.ErrNetwork) || errors.Is(err, context.DeadlineExceeded) {
		return KindRetry
	}
	if status, ok := apiclient.StatusCode(err); ok {
		switch {
		case status == http.StatusNotFound:
			return KindNotFound
		case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
			return KindRetry
		}
	}
	return KindGeneric
}

// Message is the user-facing copy for k.
func Message(k Kind) string {
	switch k {
	case KindRetry:
		return "Something went wrong on our side. Please try again."
	case KindConfiguration:
		return "The app is misconfigured and cannot reach its server. Retrying will not help."
	case KindNotFound:
		return "We couldn't find what you were looking for."
	case KindGeneric:
		return "Something went wrong."
	default:
		return ""
	}
}

// ForecastState is the forecast panel's state for one input tuple.
type ForecastState string

const (
	StateNoLocation          ForecastState = "no_location"
	StateNoDates             ForecastState = "no_dates"
	StatePastDates           ForecastState = "past_dates"
	StateLoading             ForecastState = "loading"
	StateLocationNotFound    ForecastState = "location_not_found"
	StateForecastUnavailable ForecastState = "forecast_unavailable"
	StateError               ForecastState = "error"
	StateReady               ForecastState = "ready"
)

// Precheck decides whether a resolution should run at all. It returns
// (StateLoading, true) when it should; otherwise the state to show instead.
// A trip is past when its end date is before today.
func Precheck(loc schema.Location, start, end string, today time.Time) (ForecastState, bool) {
	if _, ok := loc.Coordinates(); !ok && !loc.HasText() {
		return StateNoLocation, false
	}
	_, okFrom := schema.CalendarDate(start)
	to, okTo := schema.CalendarDate(end)
	if !okFrom || !okTo {
		return StateNoDates, false
	}
	if to < today.Format(time.DateOnly) {
		return StatePastDates, false
	}
	return StateLoading, true
}

// ForecastStateFor maps a resolver outcome to its state.
func ForecastStateFor(err error) ForecastState {
	switch {
	case err == nil:
		return StateReady
	case errors.Is(err, forecast.ErrLocationNotFound):
		return StateLocationNotFound
	case errors.Is(err, forecast.ErrForecastUnavailable):
		return StateForecastUnavailable
	default:
		return StateError
	}
}

// Describe is the user-facing copy for a forecast state.
func Describe(s ForecastState) string {
	switch s {
	case StateNoLocation:
		return "Add a location to see the forecast."
	case StateNoDates:
		return "Add trip dates to see the forecast."
	case StatePastDates:
		return "This trip has already happened."
	case StateLoading:
		return "Loading forecast…"
	case StateLocationNotFound:
		return "We couldn't find that location."
	case StateForecastUnavailable:
		return "No forecast is available for these dates yet."
	case StateError:
		return "The forecast couldn't be loaded."
	default:
		return ""
	}
}
