package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal, with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Config file, or defaults if it does not exist
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Environment
	if env.APIURL != "" {
		cfg.APIURL = env.APIURL
	}

	if env.CredentialStore != "" {
		cfg.CredentialStore = env.CredentialStore
	}

	// 4. CLI flags
	if cli.APIURL != "" {
		cfg.APIURL = cli.APIURL
	}

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.CredentialPath = expandTilde(cfg.CredentialPath)

	// Overrides bypass Load's validation, so check the merged result again.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &Resolved{Config: *cfg, Path: cfgPath}, nil
}

// Timeout returns the parsed per-attempt request timeout.
func (r *Resolved) Timeout() time.Duration {
	d, err := time.ParseDuration(r.RequestTimeout)
	if err != nil {
		return 0
	}

	return d
}

// CredentialFile returns where the selected credential backend keeps its
// data: credential_path when set, else the backend's default file.
func (r *Resolved) CredentialFile() string {
	if r.CredentialPath != "" {
		return r.CredentialPath
	}

	return DefaultCredentialPath(r.CredentialStore)
}

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}
