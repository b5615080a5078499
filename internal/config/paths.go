// Package config resolves the locations stagehand stores its data in.
package config

import (
	"os"
	"path/filepath"
)

// Environment overrides for the data locations. Useful for tests and for
// hosts that keep run history inside the build workspace.
const (
	EnvStagehandHome = "STAGEHAND_HOME"
	EnvStagehandDB   = "STAGEHAND_DB"
)

// DataDir returns the directory used to store stagehand data.
func DataDir() (string, error) {
	if d := os.Getenv(EnvStagehandHome); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	// Use a dot-directory in the user's home on all platforms
	return filepath.Join(home, ".stagehand"), nil
}

// EnsureDataDir resolves the data directory and creates it if needed.
func EnsureDataDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	return d, nil
}

// DBPath returns the full path to the SQLite history database file.
func DBPath() (string, error) {
	if p := os.Getenv(EnvStagehandDB); p != "" {
		return p, nil
	}
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "stagehand.db"), nil
}

// ReportsDir returns the directory run summaries are written to.
func ReportsDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "reports"), nil
}
