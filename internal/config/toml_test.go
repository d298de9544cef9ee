package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/nextstep/internal/model"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	require.Equal(t, model.DefaultEngineConfig(), cfg.EngineSettings())
	require.Equal(t, "warn", cfg.LogLevel("warn"))
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[suggest]
energy = "high"
minutes = 45

[engine]
urgency-weight = 0.5
cooldown-hours = 12
pressure-days = 5

[bounds]
confidence-min = 0
confidence-max = 5

[log]
level = "debug"

[store]
path = "/tmp/x.db"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	eng := cfg.EngineSettings()
	require.Equal(t, 0.5, eng.UrgencyWeight)
	require.Equal(t, 12*time.Hour, eng.Cooldown)
	require.Equal(t, 5, eng.PressureDays)
	require.Equal(t, model.DefaultEngineConfig().RepetitionWeight, eng.RepetitionWeight)

	b, err := cfg.BoundsSettings()
	require.NoError(t, err)
	require.Equal(t, model.Range{Min: 0, Max: 5}, b.Confidence)
	require.Equal(t, model.DefaultBounds().Effectiveness, b.Effectiveness)

	require.Equal(t, "high", *cfg.Suggest.Energy)
	require.Equal(t, 45, *cfg.Suggest.Minutes)
	require.Nil(t, cfg.Suggest.Top)
	require.Equal(t, "debug", cfg.LogLevel("warn"))
	require.Equal(t, "/tmp/x.db", cfg.DBPath())
}

func TestBoundsSettingsRejectsInvertedRange(t *testing.T) {
	lo, hi := 5, 5
	cfg := FileConfig{Bounds: BoundsConfig{ConfidenceMin: &lo, ConfidenceMax: &hi}}
	_, err := cfg.BoundsSettings()
	require.Error(t, err)
}

func TestLoadConfigInvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine\n"), 0o644))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_CONFIG_HOME", "/conf")
	require.Equal(t, filepath.Join("/data", "nextstep", "nextstep.db"), DefaultDBPath())
	require.Equal(t, filepath.Join("/conf", "nextstep", "config.toml"), DefaultConfigPath())
}
