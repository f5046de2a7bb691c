package meteo

import "time"

// Current holds current conditions in the shape the lookup client reads.
type Current struct {
	Temperature   float64 `json:"temperature"`
	Humidity      int     `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	Precipitation float64 `json:"precipitation"`
	IsDay         int     `json:"is_day"`
	ConditionCode int     `json:"condition_code"`
}

// Place is a geocoding match.
type Place struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Admin1      string  `json:"admin1"`
	CountryCode string  `json:"country_code"`
}

// Label renders the place as "{name}, {admin1} - {country_code}".
func (p Place) Label() string {
	return p.Name + ", " + p.Admin1 + " - " + p.CountryCode
}

// CityWeather is the body served by GET /weather/{city}.
type CityWeather struct {
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Data        Current `json:"data"`
	RetrievedAt string  `json:"retrieved_at"`
}

// Observation is a stored CityWeather together with the query that produced it.
type Observation struct {
	ID         int64       `json:"id"`
	Query      string      `json:"query"`
	Weather    CityWeather `json:"weather"`
	RecordedAt time.Time   `json:"recorded_at"`
}
