package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tkrause/wetterdeck/internal/models"
)

// fetchTimeout bounds one full update cycle across all sources.
const fetchTimeout = 90 * time.Second

// Message types for async operations

// stationFoundMsg is sent when a station lookup completes
type stationFoundMsg struct {
	station models.Station
	err     error
}

// weatherFetchedMsg is sent when an update cycle completes. It carries
// the provider it was fetched from, so completions of an abandoned
// station can be told apart from the current one.
type weatherFetchedMsg struct {
	provider  WeatherProvider
	data      models.DisplayData
	fetchedAt time.Time
}

// refreshTickMsg drives the periodic background refresh
type refreshTickMsg time.Time

// errMsg is a message type for errors
type errMsg struct {
	err error
}

// findStation resolves a station name in the background
func findStation(directory StationDirectory, query string) tea.Cmd {
	return func() tea.Msg {
		station, err := directory.ByName(query)
		return stationFoundMsg{station: station, err: err}
	}
}

// fetchWeather runs one update cycle and carries back the merged snapshot
func fetchWeather(provider WeatherProvider) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		data := provider.GetDisplayData(ctx)
		return weatherFetchedMsg{provider: provider, data: data, fetchedAt: time.Now()}
	}
}

// scheduleRefresh arms the next background refresh tick
func scheduleRefresh(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}
