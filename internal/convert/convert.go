// Package convert parses the raw cell strings of the scraped hourly
// tables into numbers and timestamps. The upstream tables mark missing
// readings with one of three "no report" tokens; every converter maps
// those to its documented sentinel instead of failing.
package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateTimeLayout = "02.01.2006 15:04"

// Epoch is the timestamp sentinel returned for "no report" datetime
// cells.
var Epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.Local)

// noReport reports whether the token is one of the upstream
// "no report" markers.
func noReport(s string) bool {
	switch s {
	case "", "-", "keine Meldung":
		return true
	}
	return false
}

// DateTime parses a datetime cell of the form "Do. 24.08. 14:30" into
// a timestamp. The cell carries no year, so the given year is injected
// before parsing. That is wrong for rows referring to the previous
// year when read across a year boundary; the behavior is a known
// limitation of the upstream format and kept as is. "No report" cells
// yield Epoch.
func DateTime(raw string, year int) (time.Time, error) {
	if noReport(raw) {
		return Epoch, nil
	}

	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return time.Time{}, fmt.Errorf("datetime cell %q: expected day name, date and time", raw)
	}

	// fields[1] keeps its trailing dot, e.g. "24.08." + "2023".
	dt, err := time.ParseInLocation(dateTimeLayout, fields[1]+strconv.Itoa(year)+" "+fields[2], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("datetime cell %q: %w", raw, err)
	}
	return dt, nil
}

// Temperature parses a temperature cell such as "12.3°C" into degree
// Celsius. "No report" cells yield NaN.
func Temperature(raw string) (float64, error) {
	number := strings.Split(raw, "°")[0]
	if noReport(number) {
		return math.NaN(), nil
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("temperature cell %q: %w", raw, err)
	}
	return value, nil
}

// Humidity parses a humidity cell such as "78%" into percent.
// "No report" cells yield NaN.
func Humidity(raw string) (float64, error) {
	number := strings.Split(raw, "%")[0]
	if noReport(number) {
		return math.NaN(), nil
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("humidity cell %q: %w", raw, err)
	}
	return value, nil
}

// Precipitation parses a precipitation cell such as "0.6 mm" into
// millimeters. "No report" cells yield 0.0 so the caller's daily sum
// stays usable. A leading non-digit character on the numeric token is
// treated as a sign marker and dropped, which loses true negative
// values; the upstream never reports meaningful negatives.
func Precipitation(raw string) (float64, error) {
	if noReport(raw) {
		return 0, nil
	}

	number := strings.Split(raw, " ")[0]
	if number == "" {
		return 0, fmt.Errorf("precipitation cell %q: no numeric token", raw)
	}
	if number[0] < '0' || number[0] > '9' {
		number = number[1:]
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("precipitation cell %q: %w", raw, err)
	}
	return value, nil
}
