package condition

// Label is a human-readable weather condition category.
type Label string

const (
	ClearSky     Label = "Clear Sky"
	PartlyCloudy Label = "Partly Cloudy"
	Fog          Label = "Fog"
	Rain         Label = "Rain"
	Hail         Label = "Hail"
	RainShowers  Label = "Rain Showers"
	Thunderstorm Label = "Thunderstorm"
	Unknown      Label = "Unknown"
)

// Classify maps a WMO weather code onto a Label.
// Ranges are checked by ascending upper bound; the first one that holds wins,
// so the order of the cases below matters.
func Classify(code int) Label {
	switch {
	case code < 0:
		return Unknown
	case code == 0:
		return ClearSky
	case code <= 3:
		return PartlyCloudy
	case code <= 48:
		return Fog
	case code <= 67:
		return Rain
	case code <= 77:
		return Hail
	case code <= 82:
		return RainShowers
	case code <= 99:
		return Thunderstorm
	default:
		return Unknown
	}
}
