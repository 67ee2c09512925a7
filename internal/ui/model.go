package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tkrause/wetterdeck/internal/models"
)

// defaultRefresh is the background refresh cadence when the caller
// passes none.
const defaultRefresh = 10 * time.Minute

// AppState represents the current state of the application
type AppState int

const (
	StateSearch   AppState = iota // Station name prompt
	StateFetching                 // Update cycle in flight
	StateDisplay                  // Weather snapshot on screen
	StateError                    // Error state
)

// StationDirectory is the lookup surface the search needs. The sqlite
// station repository implements it.
type StationDirectory interface {
	ByName(name string) (models.Station, error)
}

// WeatherProvider yields merged weather snapshots for one station. The
// collector implements it.
type WeatherProvider interface {
	GetDisplayData(ctx context.Context) models.DisplayData
}

// ProviderFactory builds the weather provider for a freshly selected
// station, typically a collector over the configured sources.
type ProviderFactory func(station models.Station) WeatherProvider

// Model represents the application's state
type Model struct {
	state  AppState
	width  int
	height int
	err    error

	// Search
	searchInput textinput.Model
	searchQuery string // Last search query

	// Station and data plumbing
	directory   StationDirectory
	newProvider ProviderFactory
	provider    WeatherProvider
	station     models.Station

	// Data
	data       models.DisplayData
	hasData    bool
	refreshing bool // background cycle in flight while displaying
	fetchedAt  time.Time

	// Refresh cadence
	refresh time.Duration

	// Appearance
	dark    bool
	styles  palette
	spinner spinner.Model
}

// NewModel creates the application model. A station with a non-empty
// name skips the search prompt and fetches immediately.
func NewModel(directory StationDirectory, newProvider ProviderFactory, station models.Station, refresh time.Duration, dark bool) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter a station name (e.g. Berlin-Tempelhof)..."
	ti.Focus()
	ti.CharLimit = 80
	ti.Width = 48

	styles := newPalette(dark)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.spinner

	if refresh <= 0 {
		refresh = defaultRefresh
	}

	m := Model{
		state:       StateSearch,
		searchInput: ti,
		directory:   directory,
		newProvider: newProvider,
		data:        models.NewDisplayData(),
		refresh:     refresh,
		dark:        dark,
		styles:      styles,
		spinner:     s,
	}

	if station.Name != "" && newProvider != nil {
		m.state = StateFetching
		m.station = station
		m.provider = newProvider(station)
	}

	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{scheduleRefresh(m.refresh)}
	if m.provider != nil {
		cmds = append(cmds, m.spinner.Tick, fetchWeather(m.provider))
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Handle window size
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	// Handle custom messages
	switch msg := msg.(type) {
	case errMsg:
		m.err = msg.err
		m.state = StateError
		return m, nil

	case stationFoundMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateError
			return m, nil
		}
		m.station = msg.station
		m.provider = m.newProvider(msg.station)
		m.state = StateFetching
		return m, tea.Batch(m.spinner.Tick, fetchWeather(m.provider))

	case weatherFetchedMsg:
		if m.provider == nil || msg.provider != m.provider {
			// Stale completion, the user already moved on to another
			// station or back to the search.
			return m, nil
		}
		m.data = msg.data
		m.hasData = true
		m.fetchedAt = msg.fetchedAt
		m.refreshing = false
		m.state = StateDisplay
		return m, nil

	case refreshTickMsg:
		// One tick chain stays armed for the whole session. A tick only
		// fetches while a snapshot is on screen and no cycle is in
		// flight.
		next := scheduleRefresh(m.refresh)
		if m.state == StateDisplay && m.provider != nil && !m.refreshing {
			m.refreshing = true
			return m, tea.Batch(next, fetchWeather(m.provider))
		}
		return m, next
	}

	// Handle keyboard input
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// q quits everywhere except while typing a station name
		if keyMsg.String() == "q" && m.state != StateSearch {
			return m, tea.Quit
		}

		switch m.state {
		case StateSearch:
			return m.handleSearchInput(keyMsg)

		case StateDisplay:
			return m.handleDisplayKeys(keyMsg)

		case StateError:
			// Any key returns to search
			m.state = StateSearch
			m.err = nil
			m.searchInput.Focus()
			return m, textinput.Blink

		case StateFetching:
			return m, nil
		}
	}

	// Update the active component
	switch m.state {
	case StateSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	case StateFetching:
		m.spinner, cmd = m.spinner.Update(msg)
	}

	return m, cmd
}

// handleSearchInput handles keyboard input in search state
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Clear error when typing
	if m.err != nil && msg.Type != tea.KeyEnter {
		m.err = nil
	}

	// Handle Enter key
	if msg.Type == tea.KeyEnter {
		query := strings.TrimSpace(m.searchInput.Value())
		if query == "" {
			return m, nil
		}
		m.searchQuery = query
		m.err = nil
		m.state = StateFetching
		return m, tea.Batch(m.spinner.Tick, findStation(m.directory, query))
	}

	// Update text input
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleDisplayKeys handles keyboard input in display state
func (m Model) handleDisplayKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		if m.provider == nil || m.refreshing {
			return m, nil
		}
		m.refreshing = true
		return m, fetchWeather(m.provider)

	case "d":
		m.dark = !m.dark
		m.styles = newPalette(m.dark)
		return m, nil

	case "s":
		m.state = StateSearch
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		// Clear all data
		m.station = models.Station{}
		m.provider = nil
		m.data = models.NewDisplayData()
		m.hasData = false
		m.refreshing = false
		return m, textinput.Blink
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case StateSearch:
		return m.viewSearch()
	case StateFetching:
		return m.viewFetching()
	case StateDisplay:
		return m.viewDisplay()
	case StateError:
		return m.viewError()
	}

	return ""
}

// viewSearch renders the station prompt
func (m Model) viewSearch() string {
	title := m.styles.title.Render("Wetterdeck")
	subtitle := m.styles.muted.Render("DWD • wetter24 • wetteronline station weather")

	searchBox := m.styles.searchBox.Render(m.searchInput.View())

	examples := m.styles.muted.Render("Examples: Berlin-Tempelhof | Potsdam | München-Stadt")
	help := m.styles.help.Render("Press Enter to search • Ctrl+C to quit")

	var sections []string
	sections = append(sections, title)
	sections = append(sections, subtitle)
	sections = append(sections, "")
	sections = append(sections, searchBox)
	sections = append(sections, "")
	sections = append(sections, examples)
	sections = append(sections, "")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewFetching renders the update cycle in progress
func (m Model) viewFetching() string {
	target := m.station.Name
	if target == "" {
		target = m.searchQuery
	}

	title := m.styles.title.Render("Wetterdeck")
	line := fmt.Sprintf("%s Fetching weather for %s...", m.spinner.View(), target)
	help := m.styles.help.Render("Q: Quit")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		line,
		"",
		help,
	)
}

// viewDisplay renders the weather snapshot
func (m Model) viewDisplay() string {
	var sections []string

	header := m.styles.title.Render(m.station.Name)
	sections = append(sections, header)

	if info := stationInfo(m.station); info != "" {
		sections = append(sections, m.styles.muted.Render(info))
	}
	sections = append(sections, "")

	sections = append(sections, m.renderWeatherPane(m.paneWidth()))

	status := fmt.Sprintf("updated %s", m.fetchedAt.Format("15:04:05"))
	if m.refreshing {
		status = "refreshing..."
	}
	sections = append(sections, m.styles.muted.Render(status))

	help := m.styles.help.Render("R: Refresh • D: Dark mode • S: New search • Q: Quit")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewError renders the error view
func (m Model) viewError() string {
	title := m.styles.errText.Render("✗ Error")

	var errorMsg string
	if m.err != nil {
		errorMsg = m.err.Error()
	} else {
		errorMsg = "An unknown error occurred"
	}

	help := m.styles.help.Render("Press any key to return to search • Q: Quit")

	var sections []string
	sections = append(sections, title)
	sections = append(sections, "")
	sections = append(sections, errorMsg)
	sections = append(sections, "")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// stationInfo summarizes the directory entry under the header.
func stationInfo(st models.Station) string {
	var parts []string
	if st.State != "" {
		parts = append(parts, st.State)
	}
	if st.Latitude != 0 || st.Longitude != 0 {
		parts = append(parts, fmt.Sprintf("%.4f° N %.4f° E", st.Latitude, st.Longitude))
	}
	if st.Altitude != 0 {
		parts = append(parts, fmt.Sprintf("%d m", st.Altitude))
	}
	return strings.Join(parts, " • ")
}

// paneWidth fits the snapshot pane to the terminal.
func (m Model) paneWidth() int {
	w := m.width - 4
	if w > 64 {
		w = 64
	}
	if w < 40 {
		w = 40
	}
	return w
}
