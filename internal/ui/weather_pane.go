package ui

import (
	"fmt"
	"strings"
)

// renderWeatherPane renders the snapshot pane. Sentinel fields are
// formatted as-is: NaN floats print as NaN, an unknown forecast prints
// as Error, matching the other renderers.
func (m Model) renderWeatherPane(width int) string {
	if !m.hasData {
		return m.styles.pane.Width(width).Render(
			m.styles.muted.Render("No weather data available"))
	}

	var content strings.Builder

	stamp := fmt.Sprintf("%s  %s", m.data.FormattedDate(), m.data.FormattedTime())
	content.WriteString(m.styles.value.Bold(true).Render(stamp))
	content.WriteString("\n\n")

	rows := []struct {
		label string
		value string
	}{
		{"Forecast", m.data.FormattedForecast()},
		{"Temperature", fmt.Sprintf("%.1f °C", m.data.Temperature)},
		{"Dew point", fmt.Sprintf("%.1f °C", m.data.DewPoint)},
		{"Precipitation", fmt.Sprintf("%.1f mm", m.data.Precipitation)},
		{"Daily min.", fmt.Sprintf("%.1f °C", m.data.DailyMin)},
		{"Daily max.", fmt.Sprintf("%.1f °C", m.data.DailyMax)},
	}

	for i, row := range rows {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.styles.label.Width(15).Render(row.label + ":"))
		content.WriteString(" ")
		content.WriteString(m.styles.value.Render(row.value))
	}

	return m.styles.pane.Width(width).Render(content.String())
}
