package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "mysql", cfg.DBDriver)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout)
	require.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("GIN_MODE", "release")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, 2*time.Second, cfg.RequestTimeout)
	require.True(t, cfg.IsProduction())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_driver: postgres\ndb_port: \"5432\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.DBDriver)
	require.Equal(t, "5432", cfg.DBPort)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "mysql", cfg.DBDriver)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_driver: [unclosed\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
}
