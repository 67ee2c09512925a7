// Package render turns weather records into console text and small
// status images.
package render

import (
	"fmt"
	"io"

	"github.com/tkrause/wetterdeck/internal/models"
)

// consoleNameLimit is the longest station name printed untruncated.
const consoleNameLimit = 36

// Console writes weather records as a plain text block, one field per
// line.
type Console struct {
	out io.Writer
}

// NewConsole returns a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Show writes the record to the configured writer.
func (c *Console) Show(data models.DisplayData) error {
	_, err := fmt.Fprintf(c.out,
		"Station: %s\n"+
			"----------------------------------------------\n"+
			"Date: %s\n"+
			"Daily forecast: %s\n"+
			"Daily max. temp.: %5.1f °C\n"+
			"Daily min. temp.: %5.1f °C\n"+
			"----------------------------------------------\n"+
			"Time: %s\n"+
			"Temperature: %5.1f °C\n"+
			"Dew point: %5.1f °C\n"+
			"Precipitation: %4.1f mm\n",
		truncate(data.StationName, consoleNameLimit),
		data.FormattedDate(),
		data.FormattedForecast(),
		data.DailyMax,
		data.DailyMin,
		data.FormattedTime(),
		data.Temperature,
		data.DewPoint,
		data.Precipitation,
	)
	return err
}

// truncate shortens s to limit runes, marking the cut with a trailing
// period.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "."
}
