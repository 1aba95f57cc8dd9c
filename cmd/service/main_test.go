package main

import (
	"testing"

	"github.com/kjstillabower/trip-planner/internal/config"
)

// The rest of main is wiring; the logic lives in internal packages with tests.
func TestTrackedTrips(t *testing.T) {
	lat, lon := 48.85, 2.35
	got := trackedTrips([]config.TrackedTrip{
		{Name: "paris", City: "Paris", Country: "France", Start: "2026-07-01", End: "2026-07-03"},
		{Name: "coords", Latitude: &lat, Longitude: &lon, Start: "2026-08-01", End: "2026-08-02"},
	})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "paris" || got[0].Location.City != "Paris" || got[0].Start != "2026-07-01" {
		t.Errorf("trip[0] = %+v", got[0])
	}
	if c, ok := got[1].Location.Coordinates(); !ok || c.Latitude != lat {
		t.Errorf("trip[1] coordinates = %+v, %v", c, ok)
	}
}
