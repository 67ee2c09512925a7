// Package statelookup resolves coordinates to the German federal
// state containing them. The state boundaries come from the GADM
// administrative areas for Germany and are cached as polygon rings in
// sqlite.
package statelookup

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tkrause/wetterdeck/internal/database"
	"github.com/tkrause/wetterdeck/internal/fetch"
)

const schema = `
CREATE TABLE IF NOT EXISTS state_areas (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	rings TEXT NOT NULL,
	bbox_min_lat REAL NOT NULL,
	bbox_max_lat REAL NOT NULL,
	bbox_min_lon REAL NOT NULL,
	bbox_max_lon REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_state_areas_bbox ON state_areas(
	bbox_min_lat, bbox_max_lat, bbox_min_lon, bbox_max_lon
);`

// Lookup answers point-in-state queries against the cached state
// boundaries.
type Lookup struct {
	db     *sql.DB
	client *fetch.Client
	logger *slog.Logger
	url    string
}

// Open opens or creates the boundary cache at dbPath. The boundaries
// themselves are downloaded by Ensure.
func Open(dbPath string, client *fetch.Client, logger *slog.Logger) (*Lookup, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.Open(dbPath, schema)
	if err != nil {
		return nil, fmt.Errorf("opening boundary database: %w", err)
	}

	return &Lookup{
		db:     db,
		client: client,
		logger: logger.With("component", "statelookup"),
		url:    stateBoundariesURL,
	}, nil
}

// Close closes the underlying database.
func (l *Lookup) Close() error { return l.db.Close() }

// StateAt reports the federal state containing the given coordinates.
// The second return value is false when the point lies outside every
// state, offshore positions included.
func (l *Lookup) StateAt(lat, lon float64) (string, bool) {
	rows, err := l.db.Query(`SELECT name, rings FROM state_areas
		WHERE ? BETWEEN bbox_min_lat AND bbox_max_lat
		  AND ? BETWEEN bbox_min_lon AND bbox_max_lon`, lat, lon)
	if err != nil {
		l.logger.Warn("state lookup failed", "error", err)
		return "", false
	}
	defer rows.Close()

	for rows.Next() {
		var name, ringsJSON string
		if err := rows.Scan(&name, &ringsJSON); err != nil {
			continue
		}
		var rings [][][]float64
		if err := json.Unmarshal([]byte(ringsJSON), &rings); err != nil {
			continue
		}
		if containsPoint(rings, lat, lon) {
			return name, true
		}
	}
	return "", false
}

func (l *Lookup) count() (int, error) {
	var n int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM state_areas").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting state areas: %w", err)
	}
	return n, nil
}

// containsPoint runs an even-odd crossing test over every ring, so a
// point on an island counts as inside and a point in a hole as
// outside.
func containsPoint(rings [][][]float64, lat, lon float64) bool {
	inside := false
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		j := len(ring) - 1
		for i := 0; i < len(ring); i++ {
			xi, yi := ring[i][0], ring[i][1]
			xj, yj := ring[j][0], ring[j][1]
			if (yi > lat) != (yj > lat) && lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
				inside = !inside
			}
			j = i
		}
	}
	return inside
}
