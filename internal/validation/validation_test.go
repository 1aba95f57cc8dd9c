package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"empty", "", "", nil},
		{"spaces", "   ", "", nil},
		{"trimmed", "  Paris ", "Paris", nil},
		{"unicode", "São Paulo", "São Paulo", nil},
		{"punctuation", "St. John's, Newfoundland-Labrador", "St. John's, Newfoundland-Labrador", nil},
		{"slash", "sea/ttle", "", ErrTextInvalidChars},
		{"question", "sea?ttle", "", ErrTextInvalidChars},
		{"control", "sea\x00ttle", "", ErrTextInvalidChars},
		{"too long", strings.Repeat("a", 101), "", ErrTextTooLong},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateText(tc.input, 100)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateText_MaxLenCountsRunes(t *testing.T) {
	if _, err := ValidateText(strings.Repeat("é", 10), 10); err != nil {
		t.Errorf("error = %v, want nil for 10 runes", err)
	}
}

func TestValidateLocation(t *testing.T) {
	loc, err := ValidateLocation(LocationQuery{City: " Paris ", Country: "France", Lat: "48.85", Lon: "2.35"}, 100)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if loc.City != "Paris" || loc.Country != "France" {
		t.Errorf("loc = %+v", loc)
	}
	if loc.Latitude == nil || *loc.Latitude != 48.85 || loc.Longitude == nil || *loc.Longitude != 2.35 {
		t.Errorf("coordinates = %v, %v", loc.Latitude, loc.Longitude)
	}
}

func TestValidateLocation_Errors(t *testing.T) {
	tests := []struct {
		name      string
		q         LocationQuery
		wantField string
		wantErr   error
	}{
		{"bad city", LocationQuery{City: "<script>"}, "city", ErrTextInvalidChars},
		{"long region", LocationQuery{Region: strings.Repeat("r", 101)}, "region", ErrTextTooLong},
		{"lat only", LocationQuery{Lat: "10"}, "lat", ErrCoordinate},
		{"lat range", LocationQuery{Lat: "91", Lon: "0"}, "lat", ErrCoordinate},
		{"lon range", LocationQuery{Lat: "0", Lon: "-180.5"}, "lon", ErrCoordinate},
		{"lon text", LocationQuery{Lat: "0", Lon: "east"}, "lon", ErrCoordinate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateLocation(tc.q, 100)
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("error = %v, want *FieldError", err)
			}
			if fe.Field != tc.wantField || !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v (field %q), want field %q and %v", err, fe.Field, tc.wantField, tc.wantErr)
			}
		})
	}
}

func TestValidateDate(t *testing.T) {
	if d, err := ValidateDate("start", ""); d != "" || err != nil {
		t.Errorf("empty = %q, %v", d, err)
	}
	if d, err := ValidateDate("start", "2026-07-01T10:00:00Z"); d != "2026-07-01" || err != nil {
		t.Errorf("timestamp = %q, %v", d, err)
	}
	_, err := ValidateDate("end", "next week")
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "end" || !errors.Is(err, ErrDate) {
		t.Errorf("bad date error = %v", err)
	}
}
