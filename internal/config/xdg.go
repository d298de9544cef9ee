// Package config resolves nextstep's file locations and reads its TOML file.
package config

import (
	"os"
	"path/filepath"
)

const appDir = "nextstep"

// XDGConfigHome returns $XDG_CONFIG_HOME, falling back to ~/.config.
func XDGConfigHome() string {
	return xdgHome("XDG_CONFIG_HOME", ".config")
}

// XDGDataHome returns $XDG_DATA_HOME, falling back to ~/.local/share.
func XDGDataHome() string {
	return xdgHome("XDG_DATA_HOME", ".local", "share")
}

// xdgHome reads env or joins rel onto the home directory. Without a home
// directory the current one is used.
func xdgHome(env string, rel ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, rel...)...)
}

// DefaultDBPath is where the SQLite database lives unless [store] path says otherwise.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appDir, "nextstep.db")
}

// DefaultConfigPath returns the TOML config location.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appDir, "config.toml")
}

// DefaultExportPath returns where "nextstep export" writes by default.
func DefaultExportPath() string {
	return filepath.Join(XDGDataHome(), appDir, "export.yaml")
}
