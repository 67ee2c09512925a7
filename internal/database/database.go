// Package database opens the shared sqlite cache. The station
// directory and the state boundaries live in one file per data
// directory; each package brings its own schema.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Filename is the basename of the shared cache database.
const Filename = "wetterdeck.db"

// Path returns the path of the shared database inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, Filename)
}

// Open opens or creates the database at dbPath and ensures the given
// schema exists. The parent directory is created as needed. The handle
// runs in WAL mode so several handles can share the file.
func Open(dbPath, schema string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return db, nil
}
