package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("STUDIOBOOKS_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "share", "studiobooks", "studiobooks.db"), cfg.Database.Path)
	require.Empty(t, cfg.Owner.ID)
	require.Equal(t, "Europe/London", cfg.Import.Timezone)
	require.Equal(t, "02/01/2006", cfg.Import.DateFormat)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "/tmp/books.db"

[owner]
id = "owner-42"

[import]
timezone = "America/New_York"
`), 0o644))
	t.Setenv("STUDIOBOOKS_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/books.db", cfg.Database.Path)
	require.Equal(t, "owner-42", cfg.Owner.ID)
	require.Equal(t, "America/New_York", cfg.Import.Timezone)
	require.Equal(t, "02/01/2006", cfg.Import.DateFormat, "unset keys keep their defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[owner]
id = "from-file"
`), 0o644))
	t.Setenv("STUDIOBOOKS_CONFIG", path)
	t.Setenv("STUDIOBOOKS_OWNER_ID", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Owner.ID)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("STUDIOBOOKS_CONFIG", path)

	want := Config{
		Database: DatabaseConfig{Path: "/tmp/round.db"},
		Owner:    OwnerConfig{ID: "owner-9"},
		Import:   ImportConfig{Timezone: "UTC", DateFormat: "2006-01-02"},
	}
	require.NoError(t, Save(want))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}
