// Package stations maintains the local directory of DWD weather
// stations: a sqlite cache of the upstream station table with lookups
// by name, coordinates and federal state.
package stations

import (
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tkrause/wetterdeck/internal/database"
	"github.com/tkrause/wetterdeck/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS stations (
	name TEXT PRIMARY KEY,
	number INTEGER NOT NULL,
	type TEXT NOT NULL,
	identifier TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	altitude INTEGER NOT NULL,
	river_basin TEXT,
	state TEXT,
	start_date TEXT,
	end_date TEXT
);
CREATE INDEX IF NOT EXISTS idx_stations_coords ON stations(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_stations_state ON stations(state);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Repository is the sqlite-backed station directory.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the station database at dbPath and ensures
// the schema exists.
func Open(dbPath string, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.Open(dbPath, schema)
	if err != nil {
		return nil, fmt.Errorf("opening station database: %w", err)
	}

	return &Repository{db: db, logger: logger.With("component", "stations")}, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error { return r.db.Close() }

// Count returns the number of stored stations.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM stations").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting stations: %w", err)
	}
	return n, nil
}

// ProvisionedAt returns the time of the last completed provisioning
// run, or false when the directory has never been filled.
func (r *Repository) ProvisionedAt() (time.Time, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM meta WHERE key = 'provisioned_at'").Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading provisioning time: %w", err)
	}

	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing provisioning time: %w", err)
	}
	return at, true, nil
}

// ReplaceAll swaps the stored directory for the given stations in one
// transaction and records the provisioning time. Stations sharing a
// name collapse to the last one, like the upstream table rows do.
func (r *Repository) ReplaceAll(stations []models.Station, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM stations"); err != nil {
		return fmt.Errorf("clearing stations: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO stations
		(name, number, type, identifier, latitude, longitude, altitude, river_basin, state, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range stations {
		_, err := stmt.Exec(s.Name, s.Number, s.Type, s.Identifier, s.Latitude, s.Longitude,
			s.Altitude, s.RiverBasin, s.State, timeToColumn(s.Start), timeToColumn(s.End))
		if err != nil {
			return fmt.Errorf("inserting station %q: %w", s.Name, err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('provisioned_at', ?)",
		at.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("recording provisioning time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stations: %w", err)
	}
	return nil
}

// ByName returns the station with the given name. The match is case
// insensitive.
func (r *Repository) ByName(name string) (models.Station, error) {
	row := r.db.QueryRow(selectColumns+" FROM stations WHERE name = ? COLLATE NOCASE", name)

	station, err := scanStation(row)
	if err == sql.ErrNoRows {
		return models.NewStation(), fmt.Errorf("station %q not found", name)
	}
	if err != nil {
		return models.NewStation(), fmt.Errorf("querying station by name: %w", err)
	}
	return station, nil
}

// Nearest returns the station closest to the given coordinates,
// by euclidean distance over raw degrees.
func (r *Repository) Nearest(lat, lon float64) (models.Station, error) {
	rows, err := r.db.Query(selectColumns + " FROM stations")
	if err != nil {
		return models.NewStation(), fmt.Errorf("querying stations: %w", err)
	}
	defer rows.Close()

	nearest := models.NewStation()
	minDistance := math.Inf(1)
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return models.NewStation(), fmt.Errorf("scanning station: %w", err)
		}
		distance := math.Hypot(lat-station.Latitude, lon-station.Longitude)
		if distance < minDistance {
			minDistance = distance
			nearest = station
		}
	}
	if err := rows.Err(); err != nil {
		return models.NewStation(), fmt.Errorf("iterating stations: %w", err)
	}
	if math.IsInf(minDistance, 1) {
		return models.NewStation(), fmt.Errorf("no stations near %.4f, %.4f", lat, lon)
	}
	return nearest, nil
}

// ByState lists all stations in the given federal state, ordered by
// name.
func (r *Repository) ByState(state string) ([]models.Station, error) {
	rows, err := r.db.Query(selectColumns+" FROM stations WHERE state = ? COLLATE NOCASE ORDER BY name", state)
	if err != nil {
		return nil, fmt.Errorf("querying stations by state: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stations: %w", err)
	}
	return stations, nil
}

const selectColumns = "SELECT name, number, type, identifier, latitude, longitude, altitude, river_basin, state, start_date, end_date"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (models.Station, error) {
	var s models.Station
	var start, end string
	err := row.Scan(&s.Name, &s.Number, &s.Type, &s.Identifier, &s.Latitude, &s.Longitude,
		&s.Altitude, &s.RiverBasin, &s.State, &start, &end)
	if err != nil {
		return s, err
	}
	s.Start = columnToTime(start)
	s.End = columnToTime(end)
	return s, nil
}

func timeToColumn(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func columnToTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
