package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

func TestOpenMeteoClient_Daily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/forecast" {
			t.Errorf("path = %s, want /v1/forecast", r.URL.Path)
		}
		q := r.URL.Query()
		checks := map[string]string{
			"latitude":   "48.8566",
			"longitude":  "2.3522",
			"start_date": "2026-07-01",
			"end_date":   "2026-07-03",
			"timezone":   "auto",
			"daily":      "temperature_2m_max,temperature_2m_min,precipitation_sum,weather_code",
		}
		for k, want := range checks {
			if got := q.Get(k); got != want {
				t.Errorf("query %s = %q, want %q", k, got, want)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"latitude":48.86,"longitude":2.35,"daily":{
			"time":["2026-07-01","2026-07-02","2026-07-03"],
			"temperature_2m_max":[24.1,25.3,null],
			"temperature_2m_min":[15.2,16.0,17.1],
			"precipitation_sum":[0.0,null,2.5],
			"weather_code":[1,3,61]}}`))
	}))
	defer srv.Close()

	c := NewOpenMeteoClient(srv.URL, 0)
	got, err := c.Daily(context.Background(), schema.Coordinates{Latitude: 48.8566, Longitude: 2.3522}, "2026-07-01", "2026-07-03")
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}
	if len(got.Time) != 3 {
		t.Fatalf("time len = %d, want 3", len(got.Time))
	}
	if got.TemperatureMax[2] != nil {
		t.Errorf("temperature_2m_max[2] = %v, want nil", *got.TemperatureMax[2])
	}
	if got.PrecipitationSum[1] != nil {
		t.Error("precipitation_sum[1] should decode as nil")
	}
	if got.WeatherCode[2] == nil || *got.WeatherCode[2] != 61 {
		t.Errorf("weather_code[2] = %v, want 61", got.WeatherCode[2])
	}
}

func TestOpenMeteoClient_Daily_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOpenMeteoClient(srv.URL, 0).Daily(context.Background(), schema.Coordinates{}, "2026-07-01", "2026-07-01")
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Errorf("Daily() error = %v, want status 502", err)
	}
}

func TestOpenMeteoClient_Daily_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewOpenMeteoClient(srv.URL, 0).Daily(context.Background(), schema.Coordinates{}, "2026-07-01", "2026-07-01")
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("Daily() error = %v, want decode failure", err)
	}
}
