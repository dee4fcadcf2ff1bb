package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Rhymond/go-money"
)

// Validation range constants.
const (
	minRequestTimeout = 1 * time.Second
	maxRequestTimeout = 5 * time.Minute
)

var (
	validCredentialStores = map[string]bool{"file": true, "sqlite": true, "bolt": true, "memory": true}
	validLogLevels        = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats       = map[string]bool{"auto": true, "text": true, "json": true}
	validLanguages        = map[string]bool{"auto": true, "en": true, "es": true}
)

// Validate checks all configuration values and returns every error found,
// so users can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.ServerConfig)...)
	errs = append(errs, validateCredentials(&cfg.CredentialsConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateDisplay(&cfg.DisplayConfig)...)

	return errors.Join(errs...)
}

func validateServer(s *ServerConfig) []error {
	var errs []error

	u, err := url.Parse(s.APIURL)

	switch {
	case s.APIURL == "":
		errs = append(errs, errors.New("api_url: must not be empty"))
	case err != nil:
		errs = append(errs, fmt.Errorf("api_url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("api_url: scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("api_url: missing host in %q", s.APIURL))
	}

	errs = append(errs, validateDurationRange("request_timeout", s.RequestTimeout, minRequestTimeout, maxRequestTimeout)...)

	return errs
}

func validateDurationRange(key, value string, lo, hi time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", key, value, err)}
	}

	if d < lo || d > hi {
		return []error{fmt.Errorf("%s: must be between %s and %s, got %s", key, lo, hi, d)}
	}

	return nil
}

func validateCredentials(c *CredentialsConfig) []error {
	if !validCredentialStores[c.CredentialStore] {
		return []error{fmt.Errorf("credential_store: must be one of file, sqlite, bolt, memory; got %q", c.CredentialStore)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateDisplay(d *DisplayConfig) []error {
	var errs []error

	if !validLanguages[d.Language] {
		errs = append(errs, fmt.Errorf("language: must be one of auto, en, es; got %q", d.Language))
	}

	if money.GetCurrency(d.Currency) == nil {
		errs = append(errs, fmt.Errorf("currency: unknown ISO 4217 code %q", d.Currency))
	}

	return errs
}
