package stations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tkrause/wetterdeck/internal/fetch"
)

// stationTablePage mirrors the shape of the upstream directory table:
// a title row, a header row and one station per following row, cells
// padded with non-breaking spaces. Aachen carries the climate archive
// Kennung and must be filtered out, the lightvessel has blank numeric
// cells, München-Stadt has a blank Bundesland cell.
const stationTablePage = `<html><body>
<table>
<tr><th colspan="11">Stationslexikon</th></tr>
<tr><th>Stationsname</th><th>Stations_ID</th><th>Kennung</th><th>Stationskennung</th><th>Breite</th><th>Länge</th><th>Stationshöhe</th><th>Flussgebiet</th><th>Bundesland</th><th>Beginn</th><th>Ende</th></tr>
<tr><td>Berlin-Tempelhof&nbsp;</td><td>433</td><td>SY</td><td>10384</td><td>52.4675</td><td>13.4021</td><td>48</td><td>Elbe</td><td>Berlin</td><td>01.01.1938</td><td>&nbsp;</td></tr>
<tr><td>Aachen</td><td>3</td><td>KL</td><td>&nbsp;</td><td>50.7827</td><td>6.0941</td><td>202</td><td>Maas</td><td>Nordrhein-Westfalen</td><td>01.01.1891</td><td>31.03.2011</td></tr>
<tr><td>München-Stadt</td><td>3379</td><td>SY</td><td>10865</td><td>48.1632</td><td>11.5429</td><td>515</td><td>Donau</td><td>&nbsp;</td><td>01.01.1954</td><td>&nbsp;</td></tr>
<tr><td>UFS Deutsche Bucht</td><td>7158</td><td>SY</td><td>10007</td><td>54.1667</td><td>7.45</td><td>&nbsp;</td><td>&nbsp;</td><td>&nbsp;</td><td>01.01.2010</td><td>&nbsp;</td></tr>
<tr><td>&nbsp;</td></tr>
</table>
</body></html>`

// stubStates counts lookups and answers through fn.
type stubStates struct {
	fn    func(lat, lon float64) (string, bool)
	calls int
}

func (s *stubStates) StateAt(lat, lon float64) (string, bool) {
	s.calls++
	return s.fn(lat, lon)
}

func newTestProvisioner(t *testing.T, repo *Repository, serverURL string, states StateResolver) *Provisioner {
	t.Helper()
	client := fetch.NewClient(1, 5*time.Second, testLogger())
	p := NewProvisioner(repo, client, states, testLogger())
	p.url = serverURL
	return p
}

func TestParseStationTable(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(stationTablePage))
	if err != nil {
		t.Fatalf("NewDocumentFromReader: %v", err)
	}

	stations := parseStationTable(doc)
	if len(stations) != 3 {
		t.Fatalf("parsed %d stations, want the 3 synop rows", len(stations))
	}
	for _, s := range stations {
		if s.Name == "Aachen" {
			t.Fatal("climate archive station survived the Kennung filter")
		}
	}

	berlin := stations[0]
	if berlin.Name != "Berlin-Tempelhof" {
		t.Errorf("name = %q, want Berlin-Tempelhof without cell padding", berlin.Name)
	}
	if berlin.Number != 433 || berlin.Type != "SY" || berlin.Identifier != "10384" {
		t.Errorf("identifiers = %d/%s/%s, want 433/SY/10384",
			berlin.Number, berlin.Type, berlin.Identifier)
	}
	if berlin.Latitude != 52.4675 || berlin.Longitude != 13.4021 || berlin.Altitude != 48 {
		t.Errorf("position = %v/%v/%d, want 52.4675/13.4021/48",
			berlin.Latitude, berlin.Longitude, berlin.Altitude)
	}
	if berlin.RiverBasin != "Elbe" || berlin.State != "Berlin" {
		t.Errorf("basin/state = %s/%s, want Elbe/Berlin", berlin.RiverBasin, berlin.State)
	}
	wantStart := time.Date(1938, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !berlin.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", berlin.Start, wantStart)
	}
	if !berlin.End.IsZero() {
		t.Errorf("end = %v, want zero for a blank cell", berlin.End)
	}

	muenchen := stations[1]
	if muenchen.Name != "München-Stadt" || muenchen.State != "" {
		t.Errorf("got %q in state %q, want München-Stadt with a blank state",
			muenchen.Name, muenchen.State)
	}

	lightvessel := stations[2]
	if lightvessel.Altitude != 0 || lightvessel.RiverBasin != "" {
		t.Errorf("blank cells parsed to %d/%q, want zero values",
			lightvessel.Altitude, lightvessel.RiverBasin)
	}
	if lightvessel.Identifier != "10007" {
		t.Errorf("identifier = %q, want 10007", lightvessel.Identifier)
	}
}

func TestParseStationTable_UnexpectedPages(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"no table", `<html><body><p>Zustimmung erforderlich</p></body></html>`},
		{"header only", `<html><body><table><tr><th>Stationsname</th></tr></table></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.page))
			if err != nil {
				t.Fatalf("NewDocumentFromReader: %v", err)
			}
			if stations := parseStationTable(doc); len(stations) != 0 {
				t.Errorf("parsed %d stations from an unusable page", len(stations))
			}
		})
	}
}

func TestProvisioner_EnsureProvisionsEmptyDirectory(t *testing.T) {
	var gotView, gotNN, gotAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotView.Store(r.URL.Query().Get("view"))
		gotNN.Store(r.URL.Query().Get("nn"))
		gotAgent.Store(r.Header.Get("User-Agent"))
		w.Write([]byte(stationTablePage))
	}))
	defer server.Close()

	repo := openTestRepository(t)
	states := &stubStates{fn: func(lat, lon float64) (string, bool) {
		if lat > 54 {
			return "", false
		}
		return "Bayern", true
	}}
	p := newTestProvisioner(t, repo, server.URL, states)

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if gotView.Load() != "nasPublication" || gotNN.Load() != "16102" {
		t.Errorf("request parameters = %v/%v, want nasPublication/16102",
			gotView.Load(), gotNN.Load())
	}
	if gotAgent.Load() != fetch.BrowserUserAgent {
		t.Errorf("User-Agent = %q, want the browser agent", gotAgent.Load())
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("directory holds %d stations, want 3", count)
	}

	muenchen, err := repo.ByName("München-Stadt")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if muenchen.State != "Bayern" {
		t.Errorf("blank state resolved to %q, want Bayern", muenchen.State)
	}
	lightvessel, err := repo.ByName("UFS Deutsche Bucht")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if lightvessel.State != "" {
		t.Errorf("offshore state = %q, want blank after a failed lookup", lightvessel.State)
	}
	if states.calls != 2 {
		t.Errorf("resolver consulted %d times, want 2 for the blank states only", states.calls)
	}

	if _, ok, err := repo.ProvisionedAt(); err != nil || !ok {
		t.Errorf("ProvisionedAt = %v, %v; want a recorded run", ok, err)
	}
}

func TestProvisioner_EnsureSkipsFreshDirectory(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(stationTablePage))
	}))
	defer server.Close()

	repo := openTestRepository(t)
	now := time.Date(2023, time.August, 24, 15, 0, 0, 0, time.UTC)
	if err := repo.ReplaceAll(directoryStations(), now.Add(-23*time.Hour)); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	p := newTestProvisioner(t, repo, server.URL, nil)
	p.now = func() time.Time { return now }

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("fresh directory triggered %d scrapes, want 0", hits.Load())
	}
}

func TestProvisioner_EnsureRefreshesStaleDirectory(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(stationTablePage))
	}))
	defer server.Close()

	repo := openTestRepository(t)
	now := time.Date(2023, time.August, 24, 15, 0, 0, 0, time.UTC)
	if err := repo.ReplaceAll(directoryStations(), now.Add(-25*time.Hour)); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	p := newTestProvisioner(t, repo, server.URL, nil)
	p.now = func() time.Time { return now }

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("stale directory triggered %d scrapes, want 1", hits.Load())
	}
	if _, err := repo.ByName("Potsdam"); err == nil {
		t.Error("station from the stale directory survived the refresh")
	}
	if _, err := repo.ByName("Berlin-Tempelhof"); err != nil {
		t.Errorf("refreshed directory is missing a scraped station: %v", err)
	}
}

func TestProvisioner_EnsureKeepsStaleCopyWhenScrapeFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "kaputt", http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := openTestRepository(t)
	now := time.Date(2023, time.August, 24, 15, 0, 0, 0, time.UTC)
	if err := repo.ReplaceAll(directoryStations(), now.Add(-25*time.Hour)); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	p := newTestProvisioner(t, repo, server.URL, nil)
	p.now = func() time.Time { return now }

	if err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure with a stale fallback: %v", err)
	}
	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("stale directory shrank to %d stations, want the 3 kept", count)
	}
}

func TestProvisioner_EnsureFailsWithoutFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "kaputt", http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := openTestRepository(t)
	p := newTestProvisioner(t, repo, server.URL, nil)

	if err := p.Ensure(context.Background()); err == nil {
		t.Fatal("Ensure with no stored directory and a dead server did not fail")
	}
}

func TestProvisioner_EnsureRejectsPageWithoutStations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Zustimmung erforderlich</p></body></html>`))
	}))
	defer server.Close()

	repo := openTestRepository(t)
	p := newTestProvisioner(t, repo, server.URL, nil)

	if err := p.Ensure(context.Background()); err == nil {
		t.Fatal("Ensure accepted a page without the station table")
	}
}
