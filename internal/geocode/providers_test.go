package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNominatimClient_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "Paris, France" || q.Get("format") != "jsonv2" || q.Get("limit") != "1" {
			t.Errorf("query = %v", q)
		}
		if r.Header.Get("User-Agent") != "trip-planner-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`[{"lat":"48.8588897","lon":"2.3200410","display_name":"Paris, France"}]`))
	}))
	defer server.Close()

	c := NewNominatimClient(server.URL, "trip-planner-test", time.Second)
	coords, err := c.Lookup(context.Background(), "Paris, France")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if coords.Latitude != 48.8588897 || coords.Longitude != 2.3200410 {
		t.Errorf("coords = %+v", coords)
	}
}

func TestNominatimClient_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantMatch bool
	}{
		{"empty result is no match", 200, `[]`, true},
		{"server error", 503, `busy`, false},
		{"malformed", 200, `{"lat":1}`, false},
		{"bad latitude", 200, `[{"lat":"north","lon":"2"}]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewNominatimClient(server.URL, "", time.Second).Lookup(context.Background(), "x")
			if err == nil {
				t.Fatal("Lookup() expected error")
			}
			if errors.Is(err, ErrNoMatch) != tt.wantMatch {
				t.Errorf("errors.Is(err, ErrNoMatch) = %v, want %v (%v)", !tt.wantMatch, tt.wantMatch, err)
			}
		})
	}
}

func TestGoogleClient_Lookup(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLat   float64
		wantErr   bool
		wantMatch bool
	}{
		{"ok", `{"status":"OK","results":[{"geometry":{"location":{"lat":37.74,"lng":-119.59}}}]}`, 37.74, false, false},
		{"zero results", `{"status":"ZERO_RESULTS","results":[]}`, 0, true, true},
		{"denied", `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`, 0, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/maps/api/geocode/json" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if r.URL.Query().Get("key") != "test-key" || r.URL.Query().Get("address") != "Yosemite, CA, USA" {
					t.Errorf("query = %v", r.URL.Query())
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			coords, err := NewGoogleClient(server.URL, "test-key", time.Second).Lookup(context.Background(), "Yosemite, CA, USA")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Lookup() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrNoMatch) != tt.wantMatch {
				t.Errorf("no-match classification wrong for %v", err)
			}
			if coords.Latitude != tt.wantLat {
				t.Errorf("latitude = %v, want %v", coords.Latitude, tt.wantLat)
			}
		})
	}
}
