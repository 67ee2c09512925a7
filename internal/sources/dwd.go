package sources

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/tkrause/wetterdeck/internal/fetch"
	"github.com/tkrause/wetterdeck/internal/models"
)

const dwdURL = "https://app-prod-ws.warnwetter.de/v30/stationOverviewExtended"

// dwdPayload is the station overview answer, keyed by station
// identifier.
type dwdPayload map[string]*dwdStation

type dwdStation struct {
	Forecast1 *dwdForecast `json:"forecast1"`
	Days      []dwdDay     `json:"days"`
}

// dwdForecast carries the hourly arrays. All values are tenths of the
// real unit; entries outside the validity window and JSON nulls mean
// "no reading".
type dwdForecast struct {
	Start              int64      `json:"start"`    // epoch milliseconds of the first step
	TimeStep           int64      `json:"timeStep"` // milliseconds between steps
	Temperature        []*float64 `json:"temperature"`
	DewPoint2m         []*float64 `json:"dewPoint2m"`
	PrecipitationTotal []*float64 `json:"precipitationTotal"`
}

type dwdDay struct {
	DayDate        string   `json:"dayDate"` // "YYYY-MM-DD"
	Icon           int      `json:"icon"`
	TemperatureMin *float64 `json:"temperatureMin"`
	TemperatureMax *float64 `json:"temperatureMax"`
}

// sample is one normalized (time, value) measurement.
type sample struct {
	time  time.Time
	value float64
}

// DWD reads the structured station overview of the DWD app API.
type DWD struct {
	station models.Station
	client  *fetch.Client
	logger  *slog.Logger
	url     string
	now     func() time.Time

	payload dwdPayload
}

// NewDWD creates a DWD source for the given station. The station's
// Identifier selects the payload in the API answer.
func NewDWD(station models.Station, client *fetch.Client, logger *slog.Logger) *DWD {
	if logger == nil {
		logger = slog.Default()
	}
	return &DWD{
		station: station,
		client:  client,
		logger:  logger.With("source", "dwd", "station", station.Name),
		url:     dwdURL,
		now:     time.Now,
	}
}

func (d *DWD) Name() string { return "DWD" }

func (d *DWD) Station() models.Station { return d.station }

// Update fetches the station overview and replaces the cached payload
// when the answer contains data for the station.
func (d *DWD) Update(ctx context.Context) error {
	params := url.Values{"stationIds": []string{d.station.Identifier}}
	headers := http.Header{"Accept": []string{"application/json"}}

	var payload dwdPayload
	if err := d.client.GetJSON(ctx, d.url, params, headers, &payload); err != nil {
		return err
	}
	if len(payload) == 0 {
		return ErrNoData
	}

	d.payload = payload
	return nil
}

// DisplayData reduces the cached payload to a DisplayData record.
func (d *DWD) DisplayData() models.DisplayData {
	data := models.NewDisplayData()
	data.StationName = d.station.Name

	station := d.payload[d.station.Identifier]
	if station == nil {
		return data
	}

	if station.Forecast1 != nil {
		d.applyForecast(&data, station.Forecast1)
	}
	if len(station.Days) > 0 {
		d.applyDay(&data, station.Days)
	}
	return data
}

// applyForecast fills the current temperature, dew point and daily
// precipitation from the hourly arrays.
func (d *DWD) applyForecast(data *models.DisplayData, forecast *dwdForecast) {
	start := time.UnixMilli(forecast.Start)
	step := time.Duration(forecast.TimeStep) * time.Millisecond

	temperatures := sampleSeries(forecast.Temperature, start, step, -999, 999, math.NaN())
	dewPoints := sampleSeries(forecast.DewPoint2m, start, step, -999, 999, math.NaN())
	precipitations := sampleSeries(forecast.PrecipitationTotal, start, step, 0, 999, 0.0)

	// The newest sample at or before now wins; samples in the future
	// are never shown even when they are closer to now.
	current, ok := latestAtOrBefore(temperatures, d.now())
	if !ok {
		return
	}
	data.DateTime = current.time
	data.Temperature = current.value

	for _, dp := range dewPoints {
		if dp.time.Equal(current.time) {
			data.DewPoint = dp.value
			break
		}
	}

	// precipitationTotal holds per-step amounts; the day total is the
	// sum of every step up to the shown sample.
	total := 0.0
	for _, p := range precipitations {
		if !p.time.After(current.time) {
			total += p.value
		}
	}
	data.Precipitation = total
}

// applyDay fills the forecast icon and the daily extrema from the day
// entry closest to today, looking backwards only.
func (d *DWD) applyDay(data *models.DisplayData, days []dwdDay) {
	now := d.now()
	bestIndex := -1
	var bestDistance time.Duration
	for i, day := range days {
		date, err := time.ParseInLocation("2006-01-02", day.DayDate, time.Local)
		if err != nil {
			d.logger.Error("Data Error: unreadable day date", "dayDate", day.DayDate, "error", err)
			continue
		}
		if date.After(now) {
			continue
		}
		if distance := now.Sub(date); bestIndex < 0 || distance < bestDistance {
			bestIndex, bestDistance = i, distance
		}
	}
	if bestIndex < 0 {
		return
	}

	day := days[bestIndex]
	data.Forecast = day.Icon
	if v := day.TemperatureMin; v != nil && *v >= -999 && *v <= 999 {
		data.DailyMin = *v / 10
	}
	if v := day.TemperatureMax; v != nil && *v >= -999 && *v <= 999 {
		data.DailyMax = *v / 10
	}
}

// sampleSeries expands a raw value array into timestamped samples.
// Values outside [lower, upper] and missing entries become the
// fallback value; everything else is divided by ten to recover the
// real unit.
func sampleSeries(values []*float64, start time.Time, step time.Duration, lower, upper, fallback float64) []sample {
	samples := make([]sample, 0, len(values))
	for i, value := range values {
		ts := start.Add(time.Duration(i) * step)
		if value == nil || *value < lower || *value > upper {
			samples = append(samples, sample{time: ts, value: fallback})
			continue
		}
		samples = append(samples, sample{time: ts, value: *value / 10})
	}
	return samples
}

// latestAtOrBefore returns the sample closest to now among those not
// in the future. The second result is false when every sample is in
// the future or the series is empty.
func latestAtOrBefore(samples []sample, now time.Time) (sample, bool) {
	best := sample{}
	found := false
	var bestDistance time.Duration
	for _, s := range samples {
		if s.time.After(now) {
			continue
		}
		if distance := now.Sub(s.time); !found || distance < bestDistance {
			best, bestDistance, found = s, distance, true
		}
	}
	return best, found
}
