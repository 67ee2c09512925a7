package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tkrause/wetterdeck/internal/fetch"
	"github.com/tkrause/wetterdeck/internal/models"
)

const (
	wetter24BaseURL    = "http://www.wetter24.de/wetterstation"
	weatherStationCall = "initWeatherStation("
)

// w24Point is one [epoch_ms, value] pair; the value is null for
// missing readings.
type w24Point [2]*float64

type w24Payload struct {
	Temperatures  *w24Temperatures  `json:"temperatures"`
	Precipitation *w24Precipitation `json:"precipitation"`
}

type w24Temperatures struct {
	MeasuredTemperature []w24Point `json:"measuredTemperature"`
	Dewpoints           []w24Point `json:"dewpoints"`
}

// w24Precipitation carries either the daily running totals or, on
// older station pages, an hourly series. Only one shape is present
// per fetch.
type w24Precipitation struct {
	Daily  []*float64 `json:"daily"`
	Hourly []w24Point `json:"hourly"`
}

// Wetter24 scrapes the station page of wetter24.de. The page embeds
// its measurement series as a JSON argument of an initWeatherStation
// script call.
type Wetter24 struct {
	station models.Station
	client  *fetch.Client
	logger  *slog.Logger
	url     string

	payload w24Payload
}

// NewWetter24 creates a Wetter24 source for the given station. The
// station's Name and Number form the page address.
func NewWetter24(station models.Station, client *fetch.Client, logger *slog.Logger) *Wetter24 {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wetter24{
		station: station,
		client:  client,
		logger:  logger.With("source", "wetter24", "station", station.Name),
		url:     wetter24BaseURL + "/" + strings.ToLower(station.Name) + "/" + strconv.Itoa(station.Number),
	}
}

func (w *Wetter24) Name() string { return "Wetter24" }

func (w *Wetter24) Station() models.Station { return w.station }

// Update fetches the station page and replaces the cached measurement
// series when the page carries any.
func (w *Wetter24) Update(ctx context.Context) error {
	headers := http.Header{"User-Agent": []string{fetch.BrowserUserAgent}}

	doc, err := w.client.GetDocument(ctx, w.url, nil, headers)
	if err != nil {
		return err
	}

	// The data script and one helper script are direct children of
	// main; any other count means a changed or empty page.
	scripts := doc.Find("main").ChildrenFiltered("script")
	if scripts.Length() != 2 {
		return ErrNoData
	}

	blob, err := scriptArgument(scripts.Eq(0).Text())
	if err != nil {
		w.logger.Error("Data Error: station page script not extractable", "error", err)
		return err
	}

	var payload w24Payload
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		w.logger.Error("Data Error: station data blob undecodable", "error", err)
		return fmt.Errorf("decoding station data: %w", err)
	}
	if payload.Temperatures == nil && payload.Precipitation == nil {
		return ErrNoData
	}

	w.payload = payload
	return nil
}

// DisplayData reduces the cached series to a DisplayData record.
func (w *Wetter24) DisplayData() models.DisplayData {
	data := models.NewDisplayData()
	data.StationName = w.station.Name

	if temps := w.payload.Temperatures; temps != nil {
		// Latest reading first; the series is ordered oldest to
		// newest and padded with nulls at the open end.
		if current, ok := latestPoint(temps.MeasuredTemperature); ok {
			data.DateTime = current.time
			data.Temperature = current.value

			dayStart := midnight(current.time)
			min, max := current.value, current.value
			for i := len(temps.MeasuredTemperature) - 1; i >= 0; i-- {
				point := temps.MeasuredTemperature[i]
				if point[0] == nil || point[1] == nil {
					continue
				}
				ts := time.UnixMilli(int64(*point[0]))
				if ts.Before(dayStart) {
					break
				}
				if *point[1] < min {
					min = *point[1]
				}
				if *point[1] > max {
					max = *point[1]
				}
			}
			data.DailyMin = min
			data.DailyMax = max
		}

		if current, ok := latestPoint(temps.Dewpoints); ok {
			data.DewPoint = current.value
		}
	}

	if prec := w.payload.Precipitation; prec != nil {
		data.Precipitation = currentPrecipitation(prec)
	}

	return data
}

// scriptArgument cuts the JSON argument out of the embedded
// initWeatherStation call.
func scriptArgument(script string) (string, error) {
	_, rest, found := strings.Cut(script, weatherStationCall)
	if !found {
		return "", fmt.Errorf("script does not call %s", weatherStationCall+")")
	}
	blob, _, found := strings.Cut(rest, ")")
	if !found {
		return "", fmt.Errorf("unterminated %s call", weatherStationCall+")")
	}
	return blob, nil
}

// latestPoint returns the newest non-null reading of the series.
func latestPoint(points []w24Point) (sample, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i][0] == nil || points[i][1] == nil {
			continue
		}
		return sample{
			time:  time.UnixMilli(int64(*points[i][0])),
			value: *points[i][1],
		}, true
	}
	return sample{}, false
}

// currentPrecipitation picks today's total from the daily series, or
// the newest hourly reading on pages still using the old shape.
func currentPrecipitation(prec *w24Precipitation) float64 {
	if len(prec.Daily) > 0 {
		if last := prec.Daily[len(prec.Daily)-1]; last != nil {
			return *last
		}
		return 0
	}
	if current, ok := latestPoint(prec.Hourly); ok {
		return current.value
	}
	return 0
}
