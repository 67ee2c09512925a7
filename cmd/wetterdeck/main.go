package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/tkrause/wetterdeck/internal/collector"
	"github.com/tkrause/wetterdeck/internal/config"
	"github.com/tkrause/wetterdeck/internal/fetch"
	"github.com/tkrause/wetterdeck/internal/models"
	"github.com/tkrause/wetterdeck/internal/poll"
	"github.com/tkrause/wetterdeck/internal/render"
	"github.com/tkrause/wetterdeck/internal/sources"
	"github.com/tkrause/wetterdeck/internal/statelookup"
	"github.com/tkrause/wetterdeck/internal/stations"
	"github.com/tkrause/wetterdeck/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	stationName := flag.String("station", "", "name of the weather station")
	stationID := flag.String("id", "", "identifier of the weather station, skips the directory lookup")
	lat := flag.Float64("lat", 0, "geographic latitude for a nearest-station lookup")
	lon := flag.Float64("lon", 0, "geographic longitude for a nearest-station lookup")
	outputMode := flag.String("mode", "", "output mode: tui, console, image or daemon")
	once := flag.Bool("once", false, "run a single refresh cycle and exit (daemon mode)")
	dark := flag.Bool("dark", false, "dark mode for the tui and image output")
	out := flag.String("out", "", "target file of the image output")
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	// A missing .env is fine, everything else is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// Flags override the file and environment configuration.
	if *stationName != "" {
		cfg.Station.Name = *stationName
	}
	if *stationID != "" {
		cfg.Station.Identifier = *stationID
	}
	if *lat != 0 {
		cfg.Station.Latitude = *lat
	}
	if *lon != 0 {
		cfg.Station.Longitude = *lon
	}
	if *outputMode != "" {
		cfg.Render.Mode = *outputMode
	}
	if *dark {
		cfg.Render.Dark = true
	}
	if *out != "" {
		cfg.Render.Out = *out
	}

	mode := strings.ToLower(cfg.Render.Mode)
	if err := validateMode(cfg.Render.Mode); err != nil {
		return err
	}
	if err := validateSources(cfg.Sources.Enabled); err != nil {
		return err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient(cfg.Fetch.Attempts, cfg.Fetch.Timeout, logger)

	repo, err := stations.Open(cfg.DatabasePath(), logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	states, err := statelookup.Open(cfg.DatabasePath(), client, logger)
	if err != nil {
		return err
	}
	defer states.Close()

	// Provisioning keeps stale data usable, failures only matter once a
	// lookup needs the missing rows.
	if err := states.Ensure(ctx); err != nil {
		logger.Warn("state boundaries unavailable", "error", err)
	}
	if err := stations.NewProvisioner(repo, client, states, logger).Ensure(ctx); err != nil {
		logger.Warn("station directory unavailable", "error", err)
	}

	station, err := resolveStation(cfg, repo)
	if err != nil {
		return err
	}

	if mode == "tui" {
		return runTUI(cfg, repo, client, logger, station)
	}

	if station.Name == "" {
		return errors.New("console, image and daemon modes need a station, pass -station, -id or -lat/-lon")
	}
	coll := collector.New(sourcesFor(cfg.Sources.Enabled, station, client, logger), logger)

	switch mode {
	case "console":
		return render.NewConsole(os.Stdout).Show(coll.GetDisplayData(ctx))

	case "image":
		return render.NewImage(cfg.Render.Dark).WriteFile(cfg.Render.Out, coll.GetDisplayData(ctx))

	default: // daemon
		img := render.NewImage(cfg.Render.Dark)
		ctrl := poll.New(coll, func(data models.DisplayData) error {
			return img.WriteFile(cfg.Render.Out, data)
		}, cfg.Refresh.Period, logger)
		if *once {
			return ctrl.Refresh(ctx)
		}
		return ctrl.Run(ctx)
	}
}

// runTUI starts the interactive terminal program. New searches build a
// fresh collector per station through the factory.
func runTUI(cfg *config.Config, repo *stations.Repository, client *fetch.Client, logger *slog.Logger, station models.Station) error {
	factory := func(st models.Station) ui.WeatherProvider {
		return collector.New(sourcesFor(cfg.Sources.Enabled, st, client, logger), logger)
	}

	m := ui.NewModel(repo, factory, station, cfg.Refresh.Period, cfg.Render.Dark)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}

// resolveStation picks the station from the configuration. An explicit
// identifier skips the directory, a name or coordinates go through it,
// and nothing selected leaves the choice to the interactive search.
func resolveStation(cfg *config.Config, repo *stations.Repository) (models.Station, error) {
	sc := cfg.Station

	if sc.Identifier != "" {
		station := models.NewStation()
		if sc.Name != "" {
			station.Name = sc.Name
		}
		station.Identifier = sc.Identifier
		station.Number = sc.Number
		if station.Number == 0 {
			// wetter24 addresses stations by number, a numeric
			// identifier doubles as one.
			if n, err := strconv.Atoi(sc.Identifier); err == nil {
				station.Number = n
			}
		}
		station.Latitude = sc.Latitude
		station.Longitude = sc.Longitude
		return station, nil
	}

	if sc.Name != "" {
		return repo.ByName(sc.Name)
	}

	if sc.Latitude != 0 || sc.Longitude != 0 {
		return repo.Nearest(sc.Latitude, sc.Longitude)
	}

	return models.Station{}, nil
}

// validateMode rejects output modes the dispatch below cannot serve.
func validateMode(mode string) error {
	switch strings.ToLower(mode) {
	case "tui", "console", "image", "daemon":
		return nil
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// validateSources rejects unknown source names before any wiring.
func validateSources(enabled []string) error {
	if len(enabled) == 0 {
		return errors.New("no sources enabled")
	}
	for _, name := range enabled {
		switch strings.ToLower(name) {
		case "dwd", "w24", "wetter24", "won", "wetteronline":
		default:
			return fmt.Errorf("unknown source %q", name)
		}
	}
	return nil
}

// sourcesFor builds the enabled sources in merge order.
func sourcesFor(enabled []string, station models.Station, client *fetch.Client, logger *slog.Logger) []sources.Source {
	srcs := make([]sources.Source, 0, len(enabled))
	for _, name := range enabled {
		switch strings.ToLower(name) {
		case "dwd":
			srcs = append(srcs, sources.NewDWD(station, client, logger))
		case "w24", "wetter24":
			srcs = append(srcs, sources.NewWetter24(station, client, logger))
		case "won", "wetteronline":
			srcs = append(srcs, sources.NewWetterOnline(station, client, logger))
		}
	}
	return srcs
}
