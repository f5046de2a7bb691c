package lookup

import (
	"strings"
	"time"

	"github.com/neexbeast/agroclima/internal/condition"
)

// Query is a trimmed, non-empty city name.
type Query string

// ParseQuery trims raw and reports whether anything is left to look up.
func ParseQuery(raw string) (Query, bool) {
	q := strings.TrimSpace(raw)
	if q == "" {
		return "", false
	}
	return Query(q), true
}

// WeatherReading holds the current conditions returned for a city.
type WeatherReading struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	Precipitation float64 `json:"precipitation"`
	IsDay         int     `json:"is_day"`
	ConditionCode int     `json:"condition_code"`
}

// Condition classifies the reading's weather code.
func (r WeatherReading) Condition() condition.Label {
	return condition.Classify(r.ConditionCode)
}

// LookupResult is one completed lookup. RetrievedAt is the local time the
// response was accepted, not the server's timestamp.
type LookupResult struct {
	City        string         `json:"city"`
	Reading     WeatherReading `json:"reading"`
	RetrievedAt time.Time      `json:"retrieved_at"`
}

// Response is what the weather service returned for a city.
type Response struct {
	City    string
	Reading WeatherReading
	// ServerRetrievedAt is the service's own timestamp. It is logged, never displayed.
	ServerRetrievedAt string
}

// ErrorKind classifies a failed lookup.
type ErrorKind int

const (
	// Unavailable covers transport errors, non-404 statuses and malformed bodies.
	Unavailable ErrorKind = iota
	// NotFound means the service does not know the city.
	NotFound
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// DisplayState is exactly one of Idle, Loading, Success or Failed.
type DisplayState interface {
	displayState()
}

// Idle is the state before the first lookup.
type Idle struct{}

// Loading means a lookup is in flight.
type Loading struct {
	Query Query
}

// Success carries the latest completed lookup.
type Success struct {
	Result LookupResult
}

// Failed carries the kind of the latest failed lookup.
type Failed struct {
	Kind ErrorKind
}

func (Idle) displayState()    {}
func (Loading) displayState() {}
func (Success) displayState() {}
func (Failed) displayState()  {}
