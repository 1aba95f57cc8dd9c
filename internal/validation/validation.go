// Package validation checks gateway query input before it reaches the
// forecast resolver.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

// ErrTextTooLong is returned when a location field exceeds the maximum length.
var ErrTextTooLong = errors.New("too long")

// ErrTextInvalidChars is returned when a location field contains disallowed characters.
var ErrTextInvalidChars = errors.New("contains invalid characters")

// ErrCoordinate is returned for an unparseable, out-of-range or unpaired coordinate.
var ErrCoordinate = errors.New("invalid coordinate")

// ErrDate is returned for a value that is not a calendar date.
var ErrDate = errors.New("invalid date")

// FieldError names the query parameter that failed.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// LocationQuery is the raw location input of a forecast request.
type LocationQuery struct {
	Name, City, Region, Country string
	Lat, Lon                    string
}

// ValidateLocation trims each text field, enforces maxLen (in runes) and the
// allowed character set, and parses the optional coordinate pair. Empty fields
// are allowed; whether enough was given is decided by the caller.
func ValidateLocation(q LocationQuery, maxLen int) (schema.Location, error) {
	var loc schema.Location
	fields := []struct {
		name string
		in   string
		out  *string
	}{
		{"name", q.Name, &loc.Name},
		{"city", q.City, &loc.City},
		{"region", q.Region, &loc.Region},
		{"country", q.Country, &loc.Country},
	}
	for _, f := range fields {
		v, err := ValidateText(f.in, maxLen)
		if err != nil {
			return schema.Location{}, &FieldError{Field: f.name, Err: err}
		}
		*f.out = v
	}

	lat, lon := strings.TrimSpace(q.Lat), strings.TrimSpace(q.Lon)
	if lat == "" && lon == "" {
		return loc, nil
	}
	if lat == "" || lon == "" {
		return schema.Location{}, &FieldError{Field: "lat", Err: fmt.Errorf("%w: lat and lon must be given together", ErrCoordinate)}
	}
	la, err := parseCoordinate(lat, 90)
	if err != nil {
		return schema.Location{}, &FieldError{Field: "lat", Err: err}
	}
	lo, err := parseCoordinate(lon, 180)
	if err != nil {
		return schema.Location{}, &FieldError{Field: "lon", Err: err}
	}
	loc.Latitude, loc.Longitude = &la, &lo
	return loc, nil
}

// ValidateText trims input, enforces maxLen in runes and restricts to letters
// (Unicode), digits, space, comma, hyphen, period and apostrophe.
func ValidateText(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrTextTooLong
	}
	for _, c := range r {
		if !isAllowedTextRune(c) {
			return "", ErrTextInvalidChars
		}
	}
	return s, nil
}

func isAllowedTextRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

func parseCoordinate(s string, bound float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCoordinate, s)
	}
	if v < -bound || v > bound {
		return 0, fmt.Errorf("%w: %q out of range", ErrCoordinate, s)
	}
	return v, nil
}

// ValidateDate accepts an empty value or a calendar date with an optional time
// component, returning the calendar date.
func ValidateDate(field, input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}
	d, ok := schema.CalendarDate(s)
	if !ok {
		return "", &FieldError{Field: field, Err: fmt.Errorf("%w: %q", ErrDate, s)}
	}
	return d, nil
}
