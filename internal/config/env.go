package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig          = "MONEYBOARD_CONFIG"
	EnvAPIURL          = "MONEYBOARD_API_URL"
	EnvCredentialStore = "MONEYBOARD_CREDENTIAL_STORE"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath      string // MONEYBOARD_CONFIG: override config file path
	APIURL          string // MONEYBOARD_API_URL: backend base URL
	CredentialStore string // MONEYBOARD_CREDENTIAL_STORE: store backend
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies them.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		APIURL:          os.Getenv(EnvAPIURL),
		CredentialStore: os.Getenv(EnvCredentialStore),
	}
}
