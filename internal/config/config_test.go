package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 300*time.Millisecond, cfg.Generate.WatchDebounce)
	assert.Equal(t, 256, cfg.Events.Buffer)
}

func TestLoad_ProjectFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
[server]
addr = ":9999"

[store]
driver = "sqlite"
dsn = "file:test.db"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)
	t.Setenv("TURBINE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "file:test.db", cfg.Store.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{Addr: ":1"},
		Store:  StoreConfig{Driver: "postgres"},
		Events: EventsConfig{Buffer: 1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}
