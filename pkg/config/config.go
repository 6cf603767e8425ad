// Package config reads and writes the app configuration file under
// ~/.config/tracka.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	xdgAppName = "tracka"
	configFile = "config.json"

	BackendLocal     = "local"
	BackendFirestore = "firestore"
)

type Config struct {
	// Backend selects the task store variant: "local" or "firestore".
	Backend string `json:"backend"`
	// FirestoreProject is the GCP project holding the task collection.
	// Required when Backend is "firestore".
	FirestoreProject string `json:"firestoreProject,omitempty"`
	// Calendar is the target calendar id; empty means the primary calendar.
	Calendar string `json:"calendar,omitempty"`
	// ArchiveMetric selects the third summary counter: "synced" counts
	// calendar-synced tasks, "completed" counts all done tasks.
	ArchiveMetric string `json:"archiveMetric"`
}

func defaults() *Config {
	return &Config{Backend: BackendLocal, ArchiveMetric: "synced"}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName, configFile), nil
}

func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendLocal
	}
	if cfg.ArchiveMetric == "" {
		cfg.ArchiveMetric = "synced"
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return saveTo(path, cfg)
}

func saveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
