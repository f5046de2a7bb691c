package meteo

import (
	"context"
	"fmt"
	"time"
)

// geocoder is the interface satisfied by GeocodingClient.
type geocoder interface {
	Search(ctx context.Context, city string) (*Place, error)
}

// forecaster is the interface satisfied by ForecastClient.
type forecaster interface {
	Current(ctx context.Context, lat, lon float64) (*Current, error)
}

// Fetcher resolves a city and fetches its current weather.
type Fetcher struct {
	geo      geocoder
	forecast forecaster
	now      func() time.Time
}

// NewFetcher constructs a Fetcher against the given Open-Meteo endpoints.
func NewFetcher(geocodingURL, forecastURL string) *Fetcher {
	return NewFetcherWithClients(NewGeocodingClient(geocodingURL), NewForecastClient(forecastURL), time.Now)
}

// NewFetcherWithClients constructs a Fetcher with injectable clients (used in tests).
func NewFetcherWithClients(g geocoder, f forecaster, now func() time.Time) *Fetcher {
	return &Fetcher{geo: g, forecast: f, now: now}
}

// Lookup geocodes city and returns its current weather. An unknown city
// yields an error wrapping ErrCityNotFound.
func (f *Fetcher) Lookup(ctx context.Context, city string) (*CityWeather, error) {
	place, err := f.geo.Search(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", city, err)
	}

	cur, err := f.forecast.Current(ctx, place.Latitude, place.Longitude)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", city, err)
	}

	return &CityWeather{
		City:        place.Label(),
		Latitude:    place.Latitude,
		Longitude:   place.Longitude,
		Data:        *cur,
		RetrievedAt: f.now().Format(time.RFC3339),
	}, nil
}
