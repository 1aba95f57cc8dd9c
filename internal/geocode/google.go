package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

// API Docs: https://developers.google.com/maps/documentation/geocoding/requests-geocoding
const googleBaseURL = "https://maps.googleapis.com"

// GoogleClient is the credential-gated fallback. Its answers are qualified by a
// status field rather than by HTTP status.
type GoogleClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewGoogleClient(baseURL, apiKey string, timeout time.Duration) *GoogleClient {
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	if timeout <= 0 {
		timeout = defaultGeoTimeout
	}
	return &GoogleClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *GoogleClient) Name() string { return "google" }

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *GoogleClient) Lookup(ctx context.Context, query string) (schema.Coordinates, error) {
	u, err := url.Parse(c.baseURL + "/maps/api/geocode/json")
	if err != nil {
		return schema.Coordinates{}, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("address", query)
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return schema.Coordinates{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return schema.Coordinates{}, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return schema.Coordinates{}, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	var apiResp googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return schema.Coordinates{}, fmt.Errorf("failed to decode response: %w", err)
	}

	switch apiResp.Status {
	case "OK":
		if len(apiResp.Results) == 0 {
			return schema.Coordinates{}, ErrNoMatch
		}
		loc := apiResp.Results[0].Geometry.Location
		return schema.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
	case "ZERO_RESULTS":
		return schema.Coordinates{}, ErrNoMatch
	default:
		return schema.Coordinates{}, fmt.Errorf("geocoding status %s: %s", apiResp.Status, apiResp.ErrorMessage)
	}
}
