package stations

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tkrause/wetterdeck/internal/fetch"
	"github.com/tkrause/wetterdeck/internal/models"
)

// stationTableURL serves the complete DWD station directory as one
// HTML table.
const stationTableURL = "https://www.dwd.de/DE/leistungen/klimadatendeutschland/statliste/statlex_html.html"

// synopKennung marks stations reporting current weather. All other
// directory entries carry archive data only and cannot serve as a
// live source.
const synopKennung = "SY"

// defaultRefresh is how long a stored station directory stays fresh.
const defaultRefresh = 24 * time.Hour

// stationDateLayout is the date format of the Beginn and Ende columns.
const stationDateLayout = "02.01.2006"

// StateResolver resolves coordinates to the German state they lie in.
type StateResolver interface {
	StateAt(lat, lon float64) (string, bool)
}

// Provisioner keeps the station directory populated. It scrapes the
// upstream station table when the stored copy is missing or older
// than the refresh interval and keeps the stale copy when a refresh
// fails.
type Provisioner struct {
	repo    *Repository
	client  *fetch.Client
	states  StateResolver
	logger  *slog.Logger
	url     string
	refresh time.Duration
	now     func() time.Time
}

// NewProvisioner returns a Provisioner writing through repo. states
// may be nil, in which case blank Bundesland columns stay blank.
func NewProvisioner(repo *Repository, client *fetch.Client, states StateResolver, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		repo:    repo,
		client:  client,
		states:  states,
		logger:  logger.With("component", "provision"),
		url:     stationTableURL,
		refresh: defaultRefresh,
		now:     time.Now,
	}
}

// Ensure makes the station directory usable. A fresh populated copy
// is left untouched, anything else triggers a scrape. A failed scrape
// is an error only when there is no stored copy to fall back to.
func (p *Provisioner) Ensure(ctx context.Context) error {
	provisionedAt, provisioned, err := p.repo.ProvisionedAt()
	if err != nil {
		return err
	}
	count, err := p.repo.Count()
	if err != nil {
		return err
	}
	if provisioned && count > 0 && p.now().Sub(provisionedAt) < p.refresh {
		p.logger.Debug("station directory is fresh",
			"stations", count, "age", p.now().Sub(provisionedAt))
		return nil
	}

	stations, err := p.scrape(ctx)
	if err != nil {
		if count > 0 {
			p.logger.Warn("station directory refresh failed, keeping stale copy",
				"stations", count, "error", err)
			return nil
		}
		return fmt.Errorf("provisioning station directory: %w", err)
	}
	p.fillStates(stations)

	if err := p.repo.ReplaceAll(stations, p.now()); err != nil {
		return err
	}
	p.logger.Info("station directory provisioned", "stations", len(stations))
	return nil
}

func (p *Provisioner) scrape(ctx context.Context) ([]models.Station, error) {
	params := url.Values{"view": {"nasPublication"}, "nn": {"16102"}}
	headers := http.Header{"User-Agent": []string{fetch.BrowserUserAgent}}

	doc, err := p.client.GetDocument(ctx, p.url, params, headers)
	if err != nil {
		return nil, err
	}
	stations := parseStationTable(doc)
	if len(stations) == 0 {
		return nil, fmt.Errorf("no synop stations in directory table")
	}
	return stations, nil
}

// parseStationTable extracts the synop stations from the directory
// table. The second row holds the column headers, every later row is
// one station with its name in the first cell.
func parseStationTable(doc *goquery.Document) []models.Station {
	rows := doc.Find("table").First().Find("tr")
	if rows.Length() < 3 {
		return nil
	}

	var columns []string
	rows.Eq(1).ChildrenFiltered("th").Each(func(_ int, cell *goquery.Selection) {
		columns = append(columns, cleanCell(cell))
	})

	var stations []models.Station
	rows.Slice(2, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 2 {
			return
		}
		fields := make(map[string]string, len(columns))
		for i := 1; i < cells.Length() && i < len(columns); i++ {
			fields[columns[i]] = cleanCell(cells.Eq(i))
		}
		if fields["Kennung"] != synopKennung {
			return
		}
		stations = append(stations, stationFromRow(cleanCell(cells.Eq(0)), fields))
	})
	return stations
}

// stationFromRow builds a Station from the directory columns. Cells
// that do not parse keep the field's default value.
func stationFromRow(name string, fields map[string]string) models.Station {
	station := models.NewStation()
	station.Name = name
	station.Number = parseIntCell(fields["Stations_ID"])
	station.Type = fields["Kennung"]
	if identifier := fields["Stationskennung"]; identifier != "" {
		station.Identifier = identifier
	}
	station.Latitude = parseFloatCell(fields["Breite"])
	station.Longitude = parseFloatCell(fields["Länge"])
	station.Altitude = parseIntCell(fields["Stationshöhe"])
	station.RiverBasin = fields["Flussgebiet"]
	station.State = fields["Bundesland"]
	station.Start = parseDateCell(fields["Beginn"])
	station.End = parseDateCell(fields["Ende"])
	return station
}

// fillStates resolves the state of every station whose Bundesland
// column was blank.
func (p *Provisioner) fillStates(stations []models.Station) {
	if p.states == nil {
		return
	}
	filled := 0
	for i := range stations {
		if stations[i].State != "" {
			continue
		}
		state, ok := p.states.StateAt(stations[i].Latitude, stations[i].Longitude)
		if !ok {
			continue
		}
		stations[i].State = state
		filled++
	}
	if filled > 0 {
		p.logger.Debug("resolved missing states", "stations", filled)
	}
}

// cleanCell normalizes a table cell: the directory pads cells with
// non-breaking spaces.
func cleanCell(cell *goquery.Selection) string {
	return strings.TrimSpace(strings.ReplaceAll(cell.Text(), " ", " "))
}

func parseIntCell(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func parseFloatCell(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseDateCell(value string) time.Time {
	t, err := time.Parse(stationDateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
