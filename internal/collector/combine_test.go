package collector

import (
	"math"
	"testing"
	"time"

	"github.com/tkrause/wetterdeck/internal/models"
)

func TestCombineDisplayData_MeasurementGroupMovesTogether(t *testing.T) {
	// The newer record wins temperature and dew point as a unit, but
	// its sentinel precipitation must not erase the accumulated value.
	t1 := time.Date(2023, 8, 24, 14, 0, 0, 0, time.Local)
	t2 := t1.Add(30 * time.Minute)

	res := models.NewDisplayData()
	res.DateTime = t1
	res.Temperature = 10
	res.DewPoint = 5
	res.Precipitation = 1.5

	next := models.NewDisplayData()
	next.DateTime = t2
	next.Temperature = 12
	next.DewPoint = 6

	got := combineDisplayData(res, next)
	if !got.DateTime.Equal(t2) {
		t.Errorf("DateTime = %v, want %v", got.DateTime, t2)
	}
	if got.Temperature != 12 {
		t.Errorf("Temperature = %v, want 12", got.Temperature)
	}
	if got.DewPoint != 6 {
		t.Errorf("DewPoint = %v, want 6", got.DewPoint)
	}
	if got.Precipitation != 1.5 {
		t.Errorf("Precipitation = %v, want retained 1.5", got.Precipitation)
	}
}

func TestCombineDisplayData_OlderMeasurementsAreIgnored(t *testing.T) {
	t1 := time.Date(2023, 8, 24, 14, 0, 0, 0, time.Local)

	res := models.NewDisplayData()
	res.DateTime = t1
	res.Temperature = 10
	res.DewPoint = 5

	next := models.NewDisplayData()
	next.DateTime = t1.Add(-time.Hour)
	next.Temperature = 99
	next.DewPoint = 99
	next.Precipitation = 99

	got := combineDisplayData(res, next)
	if got.Temperature != 10 || got.DewPoint != 5 {
		t.Errorf("Temperature, DewPoint = %v, %v, want 10, 5", got.Temperature, got.DewPoint)
	}
	if !got.DateTime.Equal(t1) {
		t.Errorf("DateTime = %v, want %v", got.DateTime, t1)
	}
	if !math.IsNaN(got.Precipitation) {
		t.Errorf("Precipitation = %v, want NaN", got.Precipitation)
	}
}

func TestCombineDisplayData_EqualTimestampsLetTheLaterSourceWin(t *testing.T) {
	t1 := time.Date(2023, 8, 24, 14, 0, 0, 0, time.Local)

	res := models.NewDisplayData()
	res.DateTime = t1
	res.Temperature = 10

	next := models.NewDisplayData()
	next.DateTime = t1
	next.Temperature = 12

	if got := combineDisplayData(res, next); got.Temperature != 12 {
		t.Errorf("Temperature = %v, want 12", got.Temperature)
	}
}

func TestCombineDisplayData_ZeroTimestampNeverWins(t *testing.T) {
	// A record without a timestamp carries no measurements, not even
	// a usable precipitation value.
	res := models.NewDisplayData()

	next := models.NewDisplayData()
	next.Temperature = 12
	next.Precipitation = 3

	got := combineDisplayData(res, next)
	if !math.IsNaN(got.Temperature) {
		t.Errorf("Temperature = %v, want NaN", got.Temperature)
	}
	if !math.IsNaN(got.Precipitation) {
		t.Errorf("Precipitation = %v, want NaN", got.Precipitation)
	}
	if !got.DateTime.IsZero() {
		t.Errorf("DateTime = %v, want zero", got.DateTime)
	}
}

func TestCombineDisplayData_StationName(t *testing.T) {
	tests := []struct {
		name string
		res  string
		next string
		want string
	}{
		{name: "non-default overrides", res: "Berlin-Tegel", next: "Hamburg", want: "Hamburg"},
		{name: "default never overrides", res: "Berlin-Tegel", next: "Error", want: "Berlin-Tegel"},
		{name: "first non-default fills the sentinel", res: "Error", next: "Hamburg", want: "Hamburg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := models.NewDisplayData()
			res.StationName = tt.res
			next := models.NewDisplayData()
			next.StationName = tt.next

			if got := combineDisplayData(res, next); got.StationName != tt.want {
				t.Errorf("StationName = %q, want %q", got.StationName, tt.want)
			}
		})
	}
}

func TestCombineDisplayData_ForecastGroupMovesTogether(t *testing.T) {
	res := models.NewDisplayData()
	res.Forecast = 2
	res.DailyMin = 10
	res.DailyMax = 20

	// A new forecast code pulls its own extrema along, even when they
	// are sentinels.
	next := models.NewDisplayData()
	next.Forecast = 3
	next.DailyMax = 25

	got := combineDisplayData(res, next)
	if got.Forecast != 3 {
		t.Errorf("Forecast = %v, want 3", got.Forecast)
	}
	if !math.IsNaN(got.DailyMin) {
		t.Errorf("DailyMin = %v, want NaN", got.DailyMin)
	}
	if got.DailyMax != 25 {
		t.Errorf("DailyMax = %v, want 25", got.DailyMax)
	}
}

func TestCombineDisplayData_DuplicateForecastLeavesExtremaAlone(t *testing.T) {
	res := models.NewDisplayData()
	res.Forecast = 2
	res.DailyMin = 10
	res.DailyMax = 20

	next := models.NewDisplayData()
	next.Forecast = 2
	next.DailyMin = 11
	next.DailyMax = 21

	got := combineDisplayData(res, next)
	if got.DailyMin != 10 || got.DailyMax != 20 {
		t.Errorf("DailyMin, DailyMax = %v, %v, want 10, 20", got.DailyMin, got.DailyMax)
	}
}

func TestCombineDisplayData_DefaultForecastIsIgnored(t *testing.T) {
	res := models.NewDisplayData()
	res.Forecast = 2
	res.DailyMin = 10
	res.DailyMax = 20

	got := combineDisplayData(res, models.NewDisplayData())
	if got.Forecast != 2 || got.DailyMin != 10 || got.DailyMax != 20 {
		t.Errorf("forecast group = %v, %v, %v, want 2, 10, 20", got.Forecast, got.DailyMin, got.DailyMax)
	}
}
