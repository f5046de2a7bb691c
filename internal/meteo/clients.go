package meteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

const httpTimeout = 10 * time.Second

var (
	// ErrCityNotFound is returned when geocoding has no match for the city.
	ErrCityNotFound = errors.New("city not found")
	// ErrLocationUnavailable wraps any geocoding transport or decode failure.
	ErrLocationUnavailable = errors.New("location service unavailable")
	// ErrWeatherUnavailable wraps any forecast transport or decode failure.
	ErrWeatherUnavailable = errors.New("weather service unavailable")
)

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// newBreaker trips after five consecutive failures and probes again after 30s.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
}

// doGet performs a GET request through cb and decodes the JSON response into dst.
func doGet(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, rawURL string, dst any) error {
	_, err := cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request for %s: %w", rawURL, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s returned status %d", rawURL, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return nil, fmt.Errorf("decoding response from %s: %w", rawURL, err)
		}
		return nil, nil
	})
	return err
}

// ---- Geocoding ----

// GeocodingClient resolves city names with the Open-Meteo geocoding API.
type GeocodingClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// DefaultGeocodingURL is the production Open-Meteo geocoding endpoint.
const DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

// NewGeocodingClient constructs a GeocodingClient pointing at baseURL.
func NewGeocodingClient(baseURL string) *GeocodingClient {
	return &GeocodingClient{baseURL: baseURL, client: newHTTPClient(), breaker: newBreaker("geocoding")}
}

type geocodingResponse struct {
	Results []Place `json:"results"`
}

// Search returns the best match for city, or ErrCityNotFound.
func (c *GeocodingClient) Search(ctx context.Context, city string) (*Place, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("language", "pt")
	params.Set("format", "json")

	var raw geocodingResponse
	if err := doGet(ctx, c.client, c.breaker, c.baseURL+"?"+params.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("%w: geocoding %s: %w", ErrLocationUnavailable, city, err)
	}

	if len(raw.Results) == 0 {
		return nil, fmt.Errorf("geocoding %s: %w", city, ErrCityNotFound)
	}

	return &raw.Results[0], nil
}

// ---- Forecast ----

// ForecastClient fetches current conditions from the Open-Meteo forecast API.
type ForecastClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// DefaultForecastURL is the production Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// NewForecastClient constructs a ForecastClient pointing at baseURL.
func NewForecastClient(baseURL string) *ForecastClient {
	return &ForecastClient{baseURL: baseURL, client: newHTTPClient(), breaker: newBreaker("forecast")}
}

type forecastResponse struct {
	Current struct {
		Temperature2m      *float64 `json:"temperature_2m"`
		RelativeHumidity2m *int     `json:"relative_humidity_2m"`
		IsDay              *int     `json:"is_day"`
		Precipitation      *float64 `json:"precipitation"`
		WeatherCode        *int     `json:"weather_code"`
		WindSpeed10m       *float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// Current returns current conditions at the given coordinates. Precipitation
// defaults to zero when the API omits it; every other field is required.
func (c *ForecastClient) Current(ctx context.Context, lat, lon float64) (*Current, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("current", "temperature_2m,relative_humidity_2m,is_day,precipitation,rain,weather_code,wind_speed_10m")
	params.Set("timezone", "auto")

	var raw forecastResponse
	if err := doGet(ctx, c.client, c.breaker, c.baseURL+"?"+params.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("%w: forecast at %f,%f: %w", ErrWeatherUnavailable, lat, lon, err)
	}

	cur := raw.Current
	if cur.Temperature2m == nil || cur.RelativeHumidity2m == nil || cur.IsDay == nil ||
		cur.WeatherCode == nil || cur.WindSpeed10m == nil {
		return nil, fmt.Errorf("%w: forecast at %f,%f: incomplete current block", ErrWeatherUnavailable, lat, lon)
	}

	out := &Current{
		Temperature:   *cur.Temperature2m,
		Humidity:      *cur.RelativeHumidity2m,
		WindSpeed:     *cur.WindSpeed10m,
		IsDay:         *cur.IsDay,
		ConditionCode: *cur.WeatherCode,
	}
	if cur.Precipitation != nil {
		out.Precipitation = *cur.Precipitation
	}
	return out, nil
}
