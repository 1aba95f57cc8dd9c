package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

// API Docs: https://nominatim.org/release-docs/develop/api/Search/
// Sample request: https://nominatim.openstreetmap.org/search?q=Paris,+France&format=jsonv2&limit=1
const (
	nominatimBaseURL  = "https://nominatim.openstreetmap.org"
	defaultUserAgent  = "trip-planner/1.0"
	defaultGeoTimeout = 5 * time.Second
)

// NominatimClient is the primary, free-text provider. It takes the first match.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	if baseURL == "" {
		baseURL = nominatimBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultGeoTimeout
	}
	return &NominatimClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

func (c *NominatimClient) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *NominatimClient) Lookup(ctx context.Context, query string) (schema.Coordinates, error) {
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return schema.Coordinates{}, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return schema.Coordinates{}, fmt.Errorf("create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return schema.Coordinates{}, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return schema.Coordinates{}, fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return schema.Coordinates{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(places) == 0 {
		return schema.Coordinates{}, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return schema.Coordinates{}, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return schema.Coordinates{}, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}
	return schema.Coordinates{Latitude: lat, Longitude: lon}, nil
}
