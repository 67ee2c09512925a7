package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tkrause/wetterdeck/internal/models"
)

func sampleRecord() models.DisplayData {
	data := models.NewDisplayData()
	data.StationName = "Berlin-Tempelhof"
	data.DateTime = time.Date(2023, time.August, 24, 14, 30, 0, 0, time.Local)
	data.Temperature = 21.5
	data.DewPoint = 10.6
	data.Precipitation = 0.8
	data.Forecast = 3
	data.DailyMin = 12
	data.DailyMax = 24
	return data
}

func TestConsole_Show(t *testing.T) {
	var buf bytes.Buffer
	if err := NewConsole(&buf).Show(sampleRecord()); err != nil {
		t.Fatalf("Show: %v", err)
	}

	want := `Station: Berlin-Tempelhof
----------------------------------------------
Date: Thu., 24.08.2023
Daily forecast: sun, cloudy
Daily max. temp.:  24.0 °C
Daily min. temp.:  12.0 °C
----------------------------------------------
Time: 14:30
Temperature:  21.5 °C
Dew point:  10.6 °C
Precipitation:  0.8 mm
`
	if got := buf.String(); got != want {
		t.Errorf("Show output:\n%s\nwant:\n%s", got, want)
	}
}

func TestConsole_ShowWithoutData(t *testing.T) {
	var buf bytes.Buffer
	if err := NewConsole(&buf).Show(models.NewDisplayData()); err != nil {
		t.Fatalf("Show: %v", err)
	}

	want := `Station: Error
----------------------------------------------
Date: Thu., 01.01.1970
Daily forecast: Error
Daily max. temp.:   NaN °C
Daily min. temp.:   NaN °C
----------------------------------------------
Time: 00:00
Temperature:   NaN °C
Dew point:   NaN °C
Precipitation:  NaN mm
`
	if got := buf.String(); got != want {
		t.Errorf("Show output:\n%s\nwant:\n%s", got, want)
	}
}

func TestConsole_TruncatesLongStationNames(t *testing.T) {
	data := sampleRecord()
	data.StationName = strings.Repeat("a", 37)

	var buf bytes.Buffer
	if err := NewConsole(&buf).Show(data); err != nil {
		t.Fatalf("Show: %v", err)
	}

	wantName := "Station: " + strings.Repeat("a", 35) + "."
	firstLine, _, _ := strings.Cut(buf.String(), "\n")
	if firstLine != wantName {
		t.Errorf("first line = %q, want %q", firstLine, wantName)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		limit int
		want  string
	}{
		{"short", "Potsdam", 36, "Potsdam"},
		{"exactly at the limit", strings.Repeat("a", 36), 36, strings.Repeat("a", 36)},
		{"one over the limit", strings.Repeat("a", 37), 36, strings.Repeat("a", 35) + "."},
		{"umlauts count as one", "Grünberg", 5, "Grün."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.s, tt.limit); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.limit, got, tt.want)
			}
		})
	}
}
