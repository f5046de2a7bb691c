package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when the weather service does not know the city.
	ErrNotFound = errors.New("city not found")
	// ErrUnavailable is returned for every other failure.
	ErrUnavailable = errors.New("weather service unavailable")
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// readingPayload mirrors the wire reading. Pointers let validation tell a
// missing field apart from a zero value.
type readingPayload struct {
	Temperature   *float64 `json:"temperature" validate:"required"`
	Humidity      *float64 `json:"humidity" validate:"required,gte=0,lte=100"`
	WindSpeed     *float64 `json:"wind_speed" validate:"required,gte=0"`
	Precipitation *float64 `json:"precipitation" validate:"required,gte=0"`
	IsDay         *int     `json:"is_day" validate:"required,oneof=0 1"`
	ConditionCode *int     `json:"condition_code" validate:"required,gte=0"`
}

func (p readingPayload) reading() WeatherReading {
	return WeatherReading{
		Temperature:   *p.Temperature,
		Humidity:      *p.Humidity,
		WindSpeed:     *p.WindSpeed,
		Precipitation: *p.Precipitation,
		IsDay:         *p.IsDay,
		ConditionCode: *p.ConditionCode,
	}
}

// responseEnvelope accepts the reading nested under "data" as the backend
// sends it; when "data" is absent the reading is read from the top level.
type responseEnvelope struct {
	City        string          `json:"city" validate:"required"`
	Data        *readingPayload `json:"data"`
	RetrievedAt string          `json:"retrieved_at"`
}

// Client fetches current weather for a city from the weather service.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient constructs a Client against baseURL. The underlying http.Client
// has no timeout; a hung request stays pending until it resolves or its
// context is cancelled.
func NewClient(baseURL, token string) *Client {
	return NewClientWithHTTP(baseURL, token, &http.Client{})
}

// NewClientWithHTTP constructs a Client with a caller-supplied http.Client (used in tests).
func NewClientWithHTTP(baseURL, token string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  hc,
	}
}

// Fetch issues GET {base}/weather/{city}. The returned error always wraps
// either ErrNotFound or ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, city string) (*Response, error) {
	endpoint := c.baseURL + "/weather/" + url.PathEscape(city)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for %s: %w", ErrUnavailable, city, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, city)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s returned status %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response for %s: %w", ErrUnavailable, city, err)
	}

	out, err := decodeResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding response for %s: %w", ErrUnavailable, city, err)
	}
	return out, nil
}

// decodeResponse parses and validates a weather service body. Any missing,
// mistyped or out-of-range field rejects the whole body.
func decodeResponse(body []byte) (*Response, error) {
	var env responseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("validating envelope: %w", err)
	}
	env.City = strings.TrimSpace(env.City)
	if env.City == "" {
		return nil, errors.New("validating envelope: blank city label")
	}

	payload := env.Data
	if payload == nil {
		payload = &readingPayload{}
		if err := json.Unmarshal(body, payload); err != nil {
			return nil, fmt.Errorf("unmarshaling reading: %w", err)
		}
	}
	if err := validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("validating reading: %w", err)
	}

	return &Response{
		City:              env.City,
		Reading:           payload.reading(),
		ServerRetrievedAt: env.RetrievedAt,
	}, nil
}
