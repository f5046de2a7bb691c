// Package config loads process configuration from the environment, after an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Server is the weather service configuration.
type Server struct {
	Port          string `validate:"required,numeric"`
	RedisURL      string `validate:"omitempty,url"`
	DatabaseURL   string `validate:"omitempty,url"`
	MigrationsDir string `validate:"required"`
	APIToken      string
	CacheTTL      time.Duration `validate:"gt=0"`
	RateLimit     int           `validate:"gt=0"`
	GeocodingURL  string        `validate:"required,http_url"`
	ForecastURL   string        `validate:"required,http_url"`
	WarmCities    []string
	WarmSchedule  string `validate:"required"`
	LogLevel      string
}

// Client is the terminal client configuration.
type Client struct {
	APIURL   string `validate:"required,http_url"`
	APIToken string
	LogLevel string
}

func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()
	return v
}

// LoadServer reads the server configuration. envFiles defaults to ".env";
// missing files are skipped.
func LoadServer(envFiles ...string) (*Server, error) {
	if err := loadDotenv(envFiles...); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetDefault("PORT", "8000")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("GEOCODING_URL", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("FORECAST_URL", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("WARM_SCHEDULE", "@every 10m")

	ttl, err := parseSeconds(v.GetString("CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	cfg := &Server{
		Port:          v.GetString("PORT"),
		RedisURL:      v.GetString("REDIS_URL"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
		APIToken:      v.GetString("API_TOKEN"),
		CacheTTL:      ttl,
		RateLimit:     v.GetInt("RATE_LIMIT_PER_MINUTE"),
		GeocodingURL:  v.GetString("GEOCODING_URL"),
		ForecastURL:   v.GetString("FORECAST_URL"),
		WarmCities:    splitList(v.GetString("WARM_CITIES")),
		WarmSchedule:  v.GetString("WARM_SCHEDULE"),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	return cfg, nil
}

// LoadClient reads the terminal client configuration.
func LoadClient(envFiles ...string) (*Client, error) {
	if err := loadDotenv(envFiles...); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetDefault("AGROCLIMA_API_URL", "http://localhost:8000")

	cfg := &Client{
		APIURL:   strings.TrimRight(v.GetString("AGROCLIMA_API_URL"), "/"),
		APIToken: v.GetString("AGROCLIMA_API_TOKEN"),
		LogLevel: v.GetString("LOG_LEVEL"),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	return cfg, nil
}

// parseSeconds reads a Go duration ("90s", "10m") or a bare integer count of seconds.
func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

// splitList splits a comma separated value, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
