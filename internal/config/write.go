package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// configFilePermissions is the permission mode for config files.
const configFilePermissions = 0o644

// configDirPermissions is the permission mode for config directories.
const configDirPermissions = 0o755

// ErrConfigExists is returned by CreateDefault when the file is already there.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate is written by "config init". Every setting is present as a
// commented-out default so users can discover options without the docs.
const configTemplate = `# moneyboard configuration

# Backend base URL, including the /api prefix.
# api_url = "http://localhost:8000/api"

# Deadline for each request attempt, including a credential refresh.
# request_timeout = "30s"

# User-Agent sent with every request.
# user_agent = "moneyboard/0.1"

# Where the access/refresh pair is kept: file, sqlite, bolt, memory
# credential_store = "file"

# Credential file location (default: platform data directory)
# credential_path = ""

# Log verbosity: debug, info, warn, error
# log_level = "warn"

# Log format: auto (text on a terminal, JSON otherwise), text, json
# log_format = "auto"

# Message language: auto, en, es
# language = "auto"

# Currency for amounts (ISO 4217)
# currency = "USD"
`

// CreateDefault writes the commented default config to path. It refuses to
// overwrite an existing file.
func CreateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	slog.Info("creating config file", slog.String("path", path))

	return atomicWriteFile(path, []byte(configTemplate))
}

// SetKey sets a top-level key in the config file at path, replacing an
// existing (or commented-out) line for the key or appending one. The
// resulting file is validated before it replaces the old one. A missing
// file starts from the default template.
func SetKey(path, key, value string) error {
	if !knownKeys[key] {
		return unknownKeyError(key)
	}

	data, err := os.ReadFile(path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		data = []byte(configTemplate)
	case err != nil:
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	content := setKeyLine(string(data), key, fmt.Sprintf("%s = %q", key, value))

	cfg := DefaultConfig()

	md, err := toml.Decode(content, cfg)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return err
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	slog.Info("setting config key", slog.String("path", path), slog.String("key", key))

	return atomicWriteFile(path, []byte(content))
}

// setKeyLine replaces the first active or commented-out assignment of key
// with newLine, or appends newLine when the key does not appear.
func setKeyLine(content, key, newLine string) string {
	lines := strings.Split(content, "\n")

	commented := -1

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if assigns(trimmed, key) {
			lines[i] = newLine

			return strings.Join(lines, "\n")
		}

		if commented < 0 && strings.HasPrefix(trimmed, "#") && assigns(strings.TrimSpace(strings.TrimPrefix(trimmed, "#")), key) {
			commented = i
		}
	}

	if commented >= 0 {
		lines[commented] = newLine

		return strings.Join(lines, "\n")
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	return content + newLine + "\n"
}

// assigns reports whether a trimmed line assigns key.
func assigns(line, key string) bool {
	rest, ok := strings.CutPrefix(line, key)
	if !ok {
		return false
	}

	return strings.HasPrefix(strings.TrimSpace(rest), "=")
}

// atomicWriteFile writes data to path via a temp file and rename, creating
// parent directories as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("config: writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("config: closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("config: setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("config: renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
