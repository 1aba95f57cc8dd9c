package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds gateway and CLI configuration loaded from YAML, .env and env.
type Config struct {
	ServerPort string

	TripAPIURL     string
	TripAPIKey     string
	TripAPITimeout time.Duration

	AuthURL     string
	AuthAnonKey string

	NominatimURL       string
	GeocodingUserAgent string
	GoogleGeocodeURL   string
	GeocodingAPIKey    string
	GeocodingTimeout   time.Duration

	ForecastURL     string
	ForecastTimeout time.Duration

	RequestTimeout  time.Duration
	MaxFieldLength  int
	CacheTTL        time.Duration
	CoalesceTimeout time.Duration
	CacheBackend    string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	HealthWindow         time.Duration
	OverloadThresholdPct int
	DegradedErrorPct     int
	DegradedMinSamples   int

	WarmCache    bool
	WarmInterval time.Duration
	TrackedTrips []TrackedTrip

	TripctlHome string
}

// TrackedTrip is a trip whose forecast the gateway keeps warm.
type TrackedTrip struct {
	Name      string   `yaml:"name"`
	City      string   `yaml:"city"`
	Region    string   `yaml:"region"`
	Country   string   `yaml:"country"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
	Start     string   `yaml:"start"`
	End       string   `yaml:"end"`
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	TripAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"trip_api"`

	Auth struct {
		URL string `yaml:"url"`
	} `yaml:"auth"`

	Geocoding struct {
		NominatimURL string `yaml:"nominatim_url"`
		UserAgent    string `yaml:"user_agent"`
		GoogleURL    string `yaml:"google_url"`
		Timeout      string `yaml:"timeout"`
	} `yaml:"geocoding"`

	Forecast struct {
		URL             string `yaml:"url"`
		Timeout         string `yaml:"timeout"`
		CoalesceTimeout string `yaml:"coalesce_timeout"`
	} `yaml:"forecast"`

	Request struct {
		Timeout        string `yaml:"timeout"`
		MaxFieldLength int    `yaml:"max_field_length"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Warm         *bool         `yaml:"warm"`
		WarmInterval string        `yaml:"warm_interval"`
		TrackedTrips []TrackedTrip `yaml:"tracked_trips"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		Window               string `yaml:"window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
		DegradedMinSamples   int    `yaml:"degraded_min_samples"`
	} `yaml:"health"`
}

type secretsFile struct {
	TripAPIKey      string `yaml:"trip_api_key"`
	AuthAnonKey     string `yaml:"auth_anon_key"`
	GeocodingAPIKey string `yaml:"geocoding_api_key"`
}

// Load reads configuration relative to the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom reads dir/.env (if present), then dir/config/{ENV_NAME}.yaml
// (default dev) and dir/config/secrets.yaml. A missing YAML file means
// defaults. Environment variables override file values.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	var fc fileConfig
	configPath := filepath.Join(dir, "config", env+".yaml")
	if err := readYAML(configPath, &fc); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	var sec secretsFile
	secretsPath := filepath.Join(dir, "config", "secrets.yaml")
	if err := readYAML(secretsPath, &sec); err != nil {
		return nil, fmt.Errorf("secrets file %s: %w", secretsPath, err)
	}

	cfg := &Config{}
	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")

	cfg.TripAPIURL = strings.TrimRight(firstNonEmpty(os.Getenv("TRIP_API_URL"), fc.TripAPI.URL), "/")
	cfg.TripAPIKey = firstNonEmpty(os.Getenv("TRIP_API_KEY"), sec.TripAPIKey)
	cfg.TripAPITimeout = parseDuration(fc.TripAPI.Timeout, 10*time.Second)

	cfg.AuthURL = strings.TrimRight(firstNonEmpty(os.Getenv("AUTH_URL"), fc.Auth.URL), "/")
	cfg.AuthAnonKey = firstNonEmpty(os.Getenv("AUTH_ANON_KEY"), sec.AuthAnonKey)

	cfg.NominatimURL = fc.Geocoding.NominatimURL
	cfg.GeocodingUserAgent = fc.Geocoding.UserAgent
	cfg.GoogleGeocodeURL = fc.Geocoding.GoogleURL
	cfg.GeocodingAPIKey = firstNonEmpty(os.Getenv("GEOCODING_API_KEY"), sec.GeocodingAPIKey)
	cfg.GeocodingTimeout = parseDurationOrZero(fc.Geocoding.Timeout, 5*time.Second)

	cfg.ForecastURL = fc.Forecast.URL
	cfg.ForecastTimeout = parseDurationOrZero(fc.Forecast.Timeout, 10*time.Second)
	cfg.CoalesceTimeout = parseDuration(fc.Forecast.CoalesceTimeout, 30*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)
	cfg.MaxFieldLength = fc.Request.MaxFieldLength
	if cfg.MaxFieldLength <= 0 {
		cfg.MaxFieldLength = 100
	}

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 5*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, "in_memory")))
	cfg.MemcachedAddrs = strings.TrimSpace(firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211"))
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.WarmCache = true
	if fc.Cache.Warm != nil {
		cfg.WarmCache = *fc.Cache.Warm
	}
	cfg.WarmInterval = parseDuration(fc.Cache.WarmInterval, 30*time.Minute)
	cfg.TrackedTrips = fc.Cache.TrackedTrips

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.HealthWindow = parseDuration(fc.Health.Window, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Health.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 25
	}
	cfg.DegradedMinSamples = fc.Health.DegradedMinSamples
	if cfg.DegradedMinSamples <= 0 {
		cfg.DegradedMinSamples = 5
	}

	cfg.TripctlHome = os.Getenv("TRIPCTL_HOME")
	if cfg.TripctlHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.TripctlHome = filepath.Join(home, ".tripctl")
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OverloadDenials is the denial count within HealthWindow at which the
// gateway reports overloaded: OverloadThresholdPct of the requests the rate
// limiter admits in that window.
func (c *Config) OverloadDenials() int {
	n := int(float64(c.RateLimitRPS) * c.HealthWindow.Seconds() * float64(c.OverloadThresholdPct) / 100)
	if n < 1 {
		return 1
	}
	return n
}

// readYAML unmarshals path into v. A missing file leaves v untouched.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
// Used for parsing duration fields from YAML config with safe fallback to defaults.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values. Ensures
// provider timeouts are positive and RequestTimeout exceeds the geocoding plus
// forecast budget, auto-adjusting RequestTimeout if needed.
func validate(cfg *Config) error {
	if cfg.GeocodingTimeout <= 0 {
		return fmt.Errorf("geocoding.timeout must be positive")
	}
	if cfg.ForecastTimeout <= 0 {
		return fmt.Errorf("forecast.timeout must be positive")
	}
	if budget := cfg.GeocodingTimeout + cfg.ForecastTimeout; cfg.RequestTimeout <= budget {
		cfg.RequestTimeout = budget + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	for i, t := range cfg.TrackedTrips {
		if t.Name == "" || t.Start == "" || t.End == "" {
			return fmt.Errorf("cache.tracked_trips[%d]: name, start and end are required", i)
		}
	}
	return nil
}
