package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, "synced", cfg.ArchiveMetric)
	assert.Empty(t, cfg.Calendar)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	want := &Config{
		Backend:          BackendFirestore,
		FirestoreProject: "tracka-prod",
		Calendar:         "primary",
		ArchiveMetric:    "completed",
	}
	require.NoError(t, saveTo(path, want))

	got, err := loadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, saveTo(path, &Config{}))

	got, err := loadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, got.Backend)
	assert.Equal(t, "synced", got.ArchiveMetric)
}
