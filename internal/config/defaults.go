package config

// Default values for configuration options. These are layer 0 of the
// override chain and work without any config file against a local backend.
const (
	defaultAPIURL          = "http://localhost:8000/api"
	defaultRequestTimeout  = "30s"
	defaultCredentialStore = "file"
	defaultLogLevel        = "warn"
	defaultLogFormat       = "auto"
	defaultLanguage        = "auto"
	defaultCurrency        = "USD"
)

// DefaultConfig returns a Config populated with all default values. It is
// both the starting point for TOML decoding (so unset keys keep defaults)
// and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			APIURL:         defaultAPIURL,
			RequestTimeout: defaultRequestTimeout,
		},
		CredentialsConfig: CredentialsConfig{
			CredentialStore: defaultCredentialStore,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		DisplayConfig: DisplayConfig{
			Language: defaultLanguage,
			Currency: defaultCurrency,
		},
	}
}
