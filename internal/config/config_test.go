package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "geoframe.db", cfg.Store.Path)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 1000, cfg.Service.PageSize)
	assert.Equal(t, 4, cfg.Service.Concurrency)
	assert.Equal(t, 4326, cfg.Load.DefaultSRID)
	assert.Empty(t, cfg.Load.XColumn)
	assert.Empty(t, cfg.Load.YColumn)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GEOFRAME_STORE_DRIVER", "postgres")
	t.Setenv("GEOFRAME_SERVER_PORT", "9090")
	t.Setenv("GEOFRAME_LOAD_DEFAULT_SRID", "3857")
	t.Setenv("GEOFRAME_LOAD_X_COLUMN", "lon")
	t.Setenv("GEOFRAME_LOAD_Y_COLUMN", "lat")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3857, cfg.Load.DefaultSRID)
	assert.Equal(t, "lon", cfg.Load.XColumn)
	assert.Equal(t, "lat", cfg.Load.YColumn)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "verbose", Format: "json"}))
}
