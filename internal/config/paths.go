package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "moneyboard"

// Config file name.
const configFileName = "config.toml"

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/moneyboard).
// On macOS, uses ~/Library/Application Support/moneyboard per Apple guidelines.
// Other platforms fall back to ~/.config/moneyboard.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxConfigDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// linuxConfigDir returns the XDG-compliant config directory for Linux.
func linuxConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultDataDir returns the platform-specific directory for application data
// (the credential store).
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/moneyboard).
// On macOS, uses ~/Library/Application Support/moneyboard (macOS convention
// collapses config and data into one directory).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxDataDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// linuxDataDir returns the XDG-compliant data directory for Linux.
func linuxDataDir(home string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".local", "share", appName)
}

// DefaultConfigPath returns the full path to the default config file.
// This is used as the fallback when neither MONEYBOARD_CONFIG nor
// --config is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// Credential file names per store backend.
var credentialFileNames = map[string]string{
	"":       "credentials.json",
	"file":   "credentials.json",
	"sqlite": "credentials.db",
	"bolt":   "credentials.bolt",
}

// DefaultCredentialPath returns where a credential backend keeps its data
// when credential_path is not set. The memory backend has no file, so it
// gets an empty path.
func DefaultCredentialPath(backend string) string {
	name, ok := credentialFileNames[backend]
	if !ok {
		return ""
	}

	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, name)
}
