// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for moneyboard. Values resolve through
// four layers: defaults -> config file -> environment -> CLI flags.
package config

// Config is the configuration parsed from a TOML file. All keys are flat
// top-level keys; the embedded structs only group them in code.
type Config struct {
	ServerConfig
	CredentialsConfig
	LoggingConfig
	DisplayConfig
}

// ServerConfig controls how the backend is reached.
type ServerConfig struct {
	APIURL         string `toml:"api_url"`
	RequestTimeout string `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// CredentialsConfig selects where the access/refresh pair is kept.
// An empty CredentialPath means the backend's default file in the data dir.
type CredentialsConfig struct {
	CredentialStore string `toml:"credential_store"`
	CredentialPath  string `toml:"credential_path"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// DisplayConfig controls how results are shown to the user.
type DisplayConfig struct {
	Language string `toml:"language"`
	Currency string `toml:"currency"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty means "not specified".
type CLIOverrides struct {
	ConfigPath string // --config
	APIURL     string // --api-url
}

// Resolved is the effective configuration after all override layers, with
// derived values parsed and paths expanded.
type Resolved struct {
	Config

	// Path is the config file that was read, or would have been read if it
	// existed.
	Path string
}
