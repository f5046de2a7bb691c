package api

import (
	"context"

	"github.com/neexbeast/agroclima/internal/meteo"
)

// WeatherFetcher resolves a city to its current weather upstream.
type WeatherFetcher interface {
	Lookup(ctx context.Context, city string) (*meteo.CityWeather, error)
}

// WeatherCache is the read-through cache in front of WeatherFetcher.
type WeatherCache interface {
	Get(ctx context.Context, city string) (*meteo.CityWeather, error)
	Set(ctx context.Context, city string, cw *meteo.CityWeather) error
	Delete(ctx context.Context, city string) error
}

// ObservationRepo is the append-only observation log.
type ObservationRepo interface {
	RecordObservation(ctx context.Context, query string, cw meteo.CityWeather) error
	RecentObservations(ctx context.Context, query string, limit int) ([]meteo.Observation, error)
}

// Pinger is anything the health endpoint can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
