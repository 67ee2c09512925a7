package sources

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tkrause/wetterdeck/internal/convert"
	"github.com/tkrause/wetterdeck/internal/fetch"
	"github.com/tkrause/wetterdeck/internal/meteo"
	"github.com/tkrause/wetterdeck/internal/models"
)

const wetterOnlineBaseURL = "https://www.wetteronline.de/wetter-aktuell"

// wonTables holds the parsed rows of the three hourly tables, each in
// document order, which is latest first.
type wonTables struct {
	temperatures   []sample
	humidities     []sample
	precipitations []sample
}

// WetterOnline scrapes the current-weather page of wetteronline.de,
// which lists temperature, humidity and precipitation in three
// parallel hourly tables.
type WetterOnline struct {
	station models.Station
	client  *fetch.Client
	logger  *slog.Logger
	url     string
	now     func() time.Time

	tables wonTables
}

// NewWetterOnline creates a WetterOnline source for the given station.
// The station's Name forms the page address and its Identifier selects
// the station on the page.
func NewWetterOnline(station models.Station, client *fetch.Client, logger *slog.Logger) *WetterOnline {
	if logger == nil {
		logger = slog.Default()
	}
	return &WetterOnline{
		station: station,
		client:  client,
		logger:  logger.With("source", "wetteronline", "station", station.Name),
		url:     wetterOnlineBaseURL + "/" + strings.ToLower(station.Name),
		now:     time.Now,
	}
}

func (w *WetterOnline) Name() string { return "WetterOnline" }

func (w *WetterOnline) Station() models.Station { return w.station }

// Update fetches the station page and replaces the cached table rows
// when the page carries the measurement tables.
func (w *WetterOnline) Update(ctx context.Context) error {
	params := url.Values{"iid": []string{w.station.Identifier}}
	headers := http.Header{"User-Agent": []string{fetch.BrowserUserAgent}}

	doc, err := w.client.GetDocument(ctx, w.url, params, headers)
	if err != nil {
		return err
	}

	showcase := doc.Find("div#showcase")
	if showcase.Length() == 0 {
		return ErrNoData
	}

	year := w.now().Year()
	var tables wonTables
	if tables.temperatures, err = w.tableRows(showcase, "temperature", year, convert.Temperature); err != nil {
		return err
	}
	if tables.humidities, err = w.tableRows(showcase, "humidity", year, convert.Humidity); err != nil {
		return err
	}
	if tables.precipitations, err = w.tableRows(showcase, "precipitation", year, convert.Precipitation); err != nil {
		return err
	}

	w.tables = tables
	return nil
}

// DisplayData reduces the cached table rows to a DisplayData record.
func (w *WetterOnline) DisplayData() models.DisplayData {
	data := models.NewDisplayData()
	data.StationName = w.station.Name

	if temps := w.tables.temperatures; len(temps) > 0 {
		// Rows are latest first, so the current reading needs no
		// search.
		data.DateTime = temps[0].time
		data.Temperature = temps[0].value

		dayStart := midnight(temps[0].time)
		min, max := math.Inf(1), math.Inf(-1)
		for _, row := range temps {
			if row.time.Before(dayStart) {
				break
			}
			if row.value < min {
				min = row.value
			}
			if row.value > max {
				max = row.value
			}
		}
		if !math.IsInf(min, 1) {
			data.DailyMin = min
		}
		if !math.IsInf(max, -1) {
			data.DailyMax = max
		}
	}

	// The page reports no dew point; it is derived from the newest
	// humidity reading and the current temperature.
	if humidities := w.tables.humidities; len(humidities) > 0 {
		data.DewPoint = meteo.DewPointMagnus(humidities[0].value, data.Temperature)
	}

	// The tables repeat sub-hourly readings within each hour; summing
	// only the top-of-hour rows counts every hour exactly once.
	if precipitations := w.tables.precipitations; len(precipitations) > 0 {
		total := 0.0
		for _, row := range precipitations {
			if row.time.Minute() == 0 {
				total += row.value
			}
		}
		data.Precipitation = total
	}

	return data
}

// tableRows parses the rows of one of the three hourly sub-tables.
// Each row carries a datetime cell and a value cell; parseValue is the
// converter matching the table's unit.
func (w *WetterOnline) tableRows(showcase *goquery.Selection, id string, year int, parseValue func(string) (float64, error)) ([]sample, error) {
	rows := showcase.ChildrenFiltered("div#" + id).
		ChildrenFiltered("table.hourly").
		ChildrenFiltered("tbody").
		ChildrenFiltered("tr")

	samples := make([]sample, 0, rows.Length())
	var rowErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 2 {
			rowErr = fmt.Errorf("%s table row %d: %d cells, expected 2", id, i, cells.Length())
			return false
		}

		ts, err := convert.DateTime(strings.TrimSpace(cells.Eq(0).Text()), year)
		if err != nil {
			rowErr = fmt.Errorf("%s table row %d: %w", id, i, err)
			return false
		}
		value, err := parseValue(strings.TrimSpace(cells.Eq(1).Text()))
		if err != nil {
			rowErr = fmt.Errorf("%s table row %d: %w", id, i, err)
			return false
		}

		samples = append(samples, sample{time: ts, value: value})
		return true
	})
	if rowErr != nil {
		w.logger.Error("Data Error: table not parsable", "table", id, "error", rowErr)
		return nil, rowErr
	}
	return samples, nil
}
