package forecast

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

	"github.com/kjstillabower/trip-planner/internal/observability"
	"github.com/kjstillabower/trip-planner/internal/schema"
)

// API Docs: https://open-meteo.com/en/docs
// Sample request: https://api.open-meteo.com/v1/forecast?latitude=48.85&longitude=2.35&daily=temperature_2m_max,temperature_2m_min,precipitation_sum,weather_code&start_date=2026-07-01&end_date=2026-07-03&timezone=auto
const (
	openMeteoBaseURL = "https://api.open-meteo.com"
	defaultTimeout   = 10 * time.Second
)

var dailyVars = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"weather_code",
}

// Daily is the provider's parallel-array daily block. Any entry may be null.
type Daily struct {
	Time             []string   `json:"time"`
	TemperatureMax   []*float64 `json:"temperature_2m_max"`
	TemperatureMin   []*float64 `json:"temperature_2m_min"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	WeatherCode      []*int     `json:"weather_code"`
}

type dailyResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Daily     Daily   `json:"daily"`
}

// OpenMeteoClient fetches daily forecasts. Calls are never retried.
type OpenMeteoClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewOpenMeteoClient(baseURL string, timeout time.Duration) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = openMeteoBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenMeteoClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Daily fetches the daily block for coords over [start, end] in the
// location's local timezone.
func (c *OpenMeteoClient) Daily(ctx context.Context, coords schema.Coordinates, start, end string) (Daily, error) {
	began := time.Now()
	status := "error"
	defer func() {
		observability.ForecastCallsTotal.WithLabelValues(status).Inc()
		observability.ObserveSince(observability.ForecastDuration.WithLabelValues(status), began)
	}()

	u, err := url.Parse(c.baseURL + "/v1/forecast")
	if err != nil {
		return Daily{}, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	q.Set("daily", strings.Join(dailyVars, ","))
	q.Set("start_date", start)
	q.Set("end_date", end)
	q.Set("timezone", "auto")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Daily{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Daily{}, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	status = observability.StatusLabel(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Daily{}, fmt.Errorf("fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var out dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		status = "error"
		return Daily{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Daily, nil
}
