// Package db keeps the run journal: a small SQLite file next to the videos
// recording which pipeline steps ran, were skipped or failed.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the journal's filename inside the video directory.
const FileName = ".gopro-telemetry.db"

// PathFor returns the journal path for a video directory.
func PathFor(dir string) string {
	return filepath.Join(dir, FileName)
}

// Open opens or creates the SQLite database at dbPath and runs migrations.
// Parent directories are created if they don't exist.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer; the CLI never needs more.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
