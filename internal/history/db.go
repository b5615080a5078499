// Package history stores run results in a SQLite database.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/stagehand-dev/stagehand/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// InitDB ensures the data directory exists, opens the SQLite database, and
// creates the schema if it does not exist.
func InitDB() (*sql.DB, error) {
	dbPath, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ApplyMigrations applies the embedded schema and performs lightweight
// post-creation migrations (adding new columns when needed).
func ApplyMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return ensureStageResultColumns(db)
}

// ensureStageResultColumns checks for columns added after the initial
// schema and adds them when missing.
func ensureStageResultColumns(db *sql.DB) error {
	rows, err := db.Query("PRAGMA table_info(stage_results)")
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if !cols["remapped"] {
		if _, err := db.Exec("ALTER TABLE stage_results ADD COLUMN remapped INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}
	if !cols["skip_reason"] {
		if _, err := db.Exec("ALTER TABLE stage_results ADD COLUMN skip_reason TEXT"); err != nil {
			return err
		}
	}
	return nil
}
