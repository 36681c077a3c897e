// Package config loads service settings from environment variables, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all settings for the session puller.
type Config struct {
	// Provider endpoints.
	AircastingBaseURL string
	NominatimBaseURL  string

	// Search parameters.
	SearchRadiusKm float64
	Places         []string // watch mode targets

	// Timeouts.
	ListTimeout    time.Duration // session and stream listings
	FetchTimeout   time.Duration // measurement downloads
	GeocodeTimeout time.Duration

	// Output.
	OutputDir    string
	KafkaBrokers []string // empty disables the Kafka sink
	KafkaTopic   string
	PostgresDSN  string   // empty disables the Postgres sink

	// Watch mode.
	WatchInterval   time.Duration
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Observability.
	LogLevel  string
	LogFormat string

	GeocodeCacheSize int
}

// Load reads configuration from the environment, applying defaults where
// unset. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AircastingBaseURL: envOrDefault("AIRCASTING_BASE_URL", "https://aircasting.org"),
		NominatimBaseURL:  envOrDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		OutputDir:         envOrDefault("OUTPUT_DIR", "."),
		KafkaTopic:        envOrDefault("KAFKA_TOPIC", "aircasting-measurements"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		HTTPAddr:          envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
		Places:            splitList(os.Getenv("PLACES")),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
	}

	var err error
	if cfg.SearchRadiusKm, err = envFloat("SEARCH_RADIUS_KM", 50); err != nil {
		return nil, err
	}
	if cfg.SearchRadiusKm <= 0 {
		return nil, errors.New("SEARCH_RADIUS_KM must be positive")
	}
	if cfg.ListTimeout, err = envDuration("LIST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeTimeout, err = envDuration("GEOCODE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.WatchInterval, err = envDuration("WATCH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheSize, err = envInt("GEOCODE_CACHE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheSize <= 0 {
		return nil, errors.New("GEOCODE_CACHE_SIZE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
