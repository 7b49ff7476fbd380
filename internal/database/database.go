package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Database holds the per-tab session storage. It plays the part of browser
// session storage: a string key/value space scoped by tab ID.
type Database struct {
	db *sql.DB
}

func New(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect session db: %w", err)
	}

	// sqlite allows one writer; a single connection keeps writes ordered.
	db.SetMaxOpenConns(1)

	d := &Database{db: db}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Database) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS session_storage (
			tab_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tab_id, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_storage_tab ON session_storage(tab_id)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("create session tables: %w", err)
		}
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}
