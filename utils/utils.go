// Package utils holds the filesystem-location helpers shared by the
// CLI: XDG-resolved config and log paths with a home-directory
// fallback, and display shortening for paths under $HOME.
package utils

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDir = "devmux"

// ConfigDir returns the devmux config directory, following the XDG
// Base Directory Specification with a ~/.devmux fallback when the XDG
// base does not exist.
func ConfigDir() string {
	return xdgDirWithFallback(xdg.ConfigHome)
}

// ConfigFilePath returns the path of the optional config file.
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "devmux.yaml")
}

// LogFilePath returns the default log file location under the XDG
// state directory.
func LogFilePath() string {
	return filepath.Join(xdgDirWithFallback(xdg.StateHome), "devmux.log")
}

func xdgDirWithFallback(base string) string {
	if _, err := os.Stat(base); err == nil {
		return filepath.Join(base, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(base, appDir)
	}
	return filepath.Join(home, "."+appDir)
}

// ShortenHomePath rewrites a path under the user's home directory to
// the ~-prefixed form for display.
func ShortenHomePath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" || path == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if rel, err := filepath.Rel(home, path); err == nil && !filepath.IsAbs(rel) && rel != ".." && !hasDotDotPrefix(rel) {
		return "~/" + rel
	}
	return path
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
