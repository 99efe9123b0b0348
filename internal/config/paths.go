package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// GetGlobalConfigDir returns the path to the global configuration directory (~/.reportwing).
// It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".reportwing"), nil
}

// GetCacheDir returns the directory holding the stage cache, run history and
// crash logs.
// Resolution order (first match wins):
// 1. Explicit config via "cache.dir" (Viper/env/flag)
// 2. XDG_CACHE_HOME/reportwing (if XDG_CACHE_HOME is set)
// 3. Global fallback: ~/.reportwing/cache
func GetCacheDir(v *viper.Viper) string {
	if path := v.GetString("cache.dir"); path != "" {
		return path
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "reportwing")
	}
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return ".reportwing"
	}
	return filepath.Join(dir, "cache")
}
