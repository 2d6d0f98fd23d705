package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// BaseSettingsDir returns the directory that holds the active settings file.
// Artifacts the client writes (logs, transcripts) live alongside it.
func BaseSettingsDir() string {
	// config.path overrides the detected directory (set by tests).
	if override := viper.GetString("config.path"); override != "" {
		return override
	}
	return filepath.Dir(viper.ConfigFileUsed())
}

// BuildSettingsPath joins target onto the settings directory.
func BuildSettingsPath(target string) string {
	return filepath.Join(BaseSettingsDir(), target)
}

// ResolveSettingsPath places a configured file path under the settings
// directory unless it is already absolute. Relative values keep only their
// base name so "./.stepwise/system.log" and "system.log" land in the same
// place.
func ResolveSettingsPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return BuildSettingsPath(filepath.Base(path))
}
