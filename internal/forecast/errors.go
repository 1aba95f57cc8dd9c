package forecast

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned for unparseable or reversed date ranges.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrLocationNotFound matches *GeocodingError.
	ErrLocationNotFound = errors.New("location not found")
	// ErrForecastUnavailable matches *ForecastUnavailableError.
	ErrForecastUnavailable = errors.New("forecast unavailable")
)

// GeocodingError means no provider produced coordinates for the location.
type GeocodingError struct {
	Location string
}

func (e *GeocodingError) Error() string {
	if e.Location == "" {
		return "could not find coordinates for location"
	}
	return fmt.Sprintf("could not find coordinates for %q", e.Location)
}

func (e *GeocodingError) Is(target error) bool { return target == ErrLocationNotFound }

// ForecastUnavailableError means the provider answered but no usable day fell
// inside the requested range.
type ForecastUnavailableError struct {
	Start, End string
}

func (e *ForecastUnavailableError) Error() string {
	return fmt.Sprintf("no forecast data available for %s to %s", e.Start, e.End)
}

func (e *ForecastUnavailableError) Is(target error) bool { return target == ErrForecastUnavailable }
