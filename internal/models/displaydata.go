package models

import (
	"math"
	"time"
)

// Date and time layouts used by the formatted accessors, with the
// fallback strings returned when no timestamp is available.
const (
	dateLayout  = "Mon., 02.01.2006"
	dateDefault = "Thu., 01.01.1970"
	timeLayout  = "15:04"
	timeDefault = "00:00"
)

// forecastPhrases maps the icon codes of the primary source to human
// readable phrases. Codes outside the table (including the 0 default)
// resolve to "Error".
var forecastPhrases = map[int]string{
	1: "sun", 2: "sun, slightly cloudy", 3: "sun, cloudy", 4: "clouds",
	5: "fog", 6: "fog, risk of slipping", 7: "light rain", 8: "rain",
	9: "heavy rain", 10: "light rain, risk of slipping",
	11: "heavy rain, risk of slipping", 12: "rain, sporadic snowfall",
	13: "rain, increased snowfall", 14: "light snowfall", 15: "snowfall",
	16: "heavy snowfall", 17: "clouds, hail", 18: "sun, light rain",
	19: "sun, heavy rain", 20: "sun, rain, sporadic snowfall",
	21: "sun, rain, increased snowfall", 22: "sun, sporadic snowfall",
	23: "sun, increased snowfall", 24: "sun, hail", 25: "sun, heavy hail",
	26: "thunderstorm", 27: "thunderstorm, rain",
	28: "thunderstorm, heavy rain", 29: "thunderstorm, hail",
	30: "thunderstorm, heavy hail", 31: "wind",
}

// DisplayData is the normalized weather snapshot every source reduces
// to and every renderer consumes. Each field carries an explicit
// "no data" sentinel so renderers only ever format, never null-check:
// NaN for the float fields, the zero time for DateTime, "Error" for
// StationName and 0 for Forecast.
type DisplayData struct {
	StationName   string    // station display name, "Error" when unknown
	DateTime      time.Time // timestamp of the newest usable temperature sample
	Temperature   float64   // °C
	DewPoint      float64   // °C
	Precipitation float64   // mm, accumulated for the current day where defined
	Forecast      int       // icon code of the primary source, 0 when unknown
	DailyMin      float64   // °C
	DailyMax      float64   // °C
}

// NewDisplayData returns a DisplayData with every field set to its
// "no data" sentinel.
func NewDisplayData() DisplayData {
	return DisplayData{
		StationName:   "Error",
		Temperature:   math.NaN(),
		DewPoint:      math.NaN(),
		Precipitation: math.NaN(),
		DailyMin:      math.NaN(),
		DailyMax:      math.NaN(),
	}
}

// FormattedDate renders the sample date as e.g. "Thu., 24.08.2023",
// or the epoch fallback when no timestamp is available.
func (d DisplayData) FormattedDate() string {
	if d.DateTime.IsZero() {
		return dateDefault
	}
	return d.DateTime.Format(dateLayout)
}

// FormattedTime renders the sample time as e.g. "14:30", or "00:00"
// when no timestamp is available.
func (d DisplayData) FormattedTime() string {
	if d.DateTime.IsZero() {
		return timeDefault
	}
	return d.DateTime.Format(timeLayout)
}

// FormattedForecast resolves the forecast icon code to its phrase.
func (d DisplayData) FormattedForecast() string {
	if phrase, ok := forecastPhrases[d.Forecast]; ok {
		return phrase
	}
	return "Error"
}
