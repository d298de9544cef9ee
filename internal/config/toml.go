// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/nextstep/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Suggest SuggestConfig `toml:"suggest"`
	Engine  EngineConfig  `toml:"engine"`
	Bounds  BoundsConfig  `toml:"bounds"`
	Log     LogConfig     `toml:"log"`
	Store   StoreConfig   `toml:"store"`
}

// SuggestConfig maps default inputs for suggestions.
type SuggestConfig struct {
	Energy  *string `toml:"energy"`
	Minutes *int    `toml:"minutes"`
	Top     *int    `toml:"top"`
}

// EngineConfig maps recommendation weights and windows.
type EngineConfig struct {
	UrgencyWeight    *float64 `toml:"urgency-weight"`
	ConfidenceWeight *float64 `toml:"confidence-weight"`
	EnergyWeight     *float64 `toml:"energy-weight"`
	RepetitionWeight *float64 `toml:"repetition-weight"`
	HorizonDays      *int     `toml:"horizon-days"`
	CooldownHours    *float64 `toml:"cooldown-hours"`
	PressureDays     *int     `toml:"pressure-days"`
	UndershootStep   *float64 `toml:"undershoot-step"`
	DecayPerWeek     *int     `toml:"decay-per-week"`
	MaxDecay         *int     `toml:"max-decay"`
}

// BoundsConfig maps rating scales.
type BoundsConfig struct {
	ConfidenceMin    *int `toml:"confidence-min"`
	ConfidenceMax    *int `toml:"confidence-max"`
	EffectivenessMin *int `toml:"effectiveness-min"`
	EffectivenessMax *int `toml:"effectiveness-max"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// StoreConfig maps persistence settings.
type StoreConfig struct {
	Path *string `toml:"path"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// EngineSettings overlays file values on the default engine configuration.
func (c FileConfig) EngineSettings() model.EngineConfig {
	cfg := model.DefaultEngineConfig()
	e := c.Engine
	setFloat(&cfg.UrgencyWeight, e.UrgencyWeight)
	setFloat(&cfg.ConfidenceWeight, e.ConfidenceWeight)
	setFloat(&cfg.EnergyWeight, e.EnergyWeight)
	setFloat(&cfg.RepetitionWeight, e.RepetitionWeight)
	setInt(&cfg.HorizonDays, e.HorizonDays)
	setInt(&cfg.PressureDays, e.PressureDays)
	setFloat(&cfg.UndershootStep, e.UndershootStep)
	setInt(&cfg.DecayPerWeek, e.DecayPerWeek)
	setInt(&cfg.MaxDecay, e.MaxDecay)
	if e.CooldownHours != nil {
		cfg.Cooldown = time.Duration(*e.CooldownHours * float64(time.Hour))
	}
	return cfg
}

// BoundsSettings overlays file values on the default rating scales.
func (c FileConfig) BoundsSettings() (model.Bounds, error) {
	b := model.DefaultBounds()
	setInt(&b.Confidence.Min, c.Bounds.ConfidenceMin)
	setInt(&b.Confidence.Max, c.Bounds.ConfidenceMax)
	setInt(&b.Effectiveness.Min, c.Bounds.EffectivenessMin)
	setInt(&b.Effectiveness.Max, c.Bounds.EffectivenessMax)
	if b.Confidence.Min >= b.Confidence.Max {
		return model.Bounds{}, fmt.Errorf("confidence-min must be below confidence-max")
	}
	if b.Effectiveness.Min >= b.Effectiveness.Max {
		return model.Bounds{}, fmt.Errorf("effectiveness-min must be below effectiveness-max")
	}
	return b, nil
}

// LogLevel returns the configured log level or fallback.
func (c FileConfig) LogLevel(fallback string) string {
	if c.Log.Level == nil || *c.Log.Level == "" {
		return fallback
	}
	return *c.Log.Level
}

// DBPath returns the configured database path or the XDG default.
func (c FileConfig) DBPath() string {
	if c.Store.Path == nil || *c.Store.Path == "" {
		return DefaultDBPath()
	}
	return *c.Store.Path
}

func setFloat(target *float64, value *float64) {
	if value != nil {
		*target = *value
	}
}

func setInt(target *int, value *int) {
	if value != nil {
		*target = *value
	}
}
