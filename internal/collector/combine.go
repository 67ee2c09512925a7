package collector

import (
	"math"

	"github.com/tkrause/wetterdeck/internal/models"
)

// combineDisplayData folds the next record into the accumulated
// result. Fields only move when the next record carries non-sentinel
// data, and they move in groups: a measurement group never mixes
// values taken by different sources at different times.
func combineDisplayData(res, next models.DisplayData) models.DisplayData {
	def := models.NewDisplayData()

	if next.StationName != def.StationName && next.StationName != res.StationName {
		res.StationName = next.StationName
	}

	// Temperature and dew point travel with their timestamp; the
	// newest sample wins, with ties going to the later source.
	// Precipitation belongs to the same group but keeps the previous
	// value when the newer source reports none.
	if !next.DateTime.IsZero() && !next.DateTime.Before(res.DateTime) {
		res.DateTime = next.DateTime
		res.Temperature = next.Temperature
		res.DewPoint = next.DewPoint
		if !math.IsNaN(next.Precipitation) {
			res.Precipitation = next.Precipitation
		}
	}

	// The forecast icon and the daily extrema come from the same
	// daily summary and travel together.
	if next.Forecast != def.Forecast && next.Forecast != res.Forecast {
		res.Forecast = next.Forecast
		res.DailyMin = next.DailyMin
		res.DailyMax = next.DailyMax
	}

	return res
}
