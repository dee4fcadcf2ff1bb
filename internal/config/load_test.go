package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
api_url = "https://money.example.com/api"
request_timeout = "10s"
user_agent = "moneyboard-test/1.0"
credential_store = "sqlite"
credential_path = "/var/lib/moneyboard/creds.db"
log_level = "debug"
log_format = "json"
language = "es"
currency = "EUR"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://money.example.com/api", cfg.APIURL)
	assert.Equal(t, "10s", cfg.RequestTimeout)
	assert.Equal(t, "moneyboard-test/1.0", cfg.UserAgent)
	assert.Equal(t, "sqlite", cfg.CredentialStore)
	assert.Equal(t, "/var/lib/moneyboard/creds.db", cfg.CredentialPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "es", cfg.Language)
	assert.Equal(t, "EUR", cfg.Currency)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `log_level = "info"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, defaultAPIURL, cfg.APIURL)
	assert.Equal(t, defaultCredentialStore, cfg.CredentialStore)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, `api_url = "unterminated`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestLoad_ValidationErrorsAreJoined(t *testing.T) {
	path := writeTestConfig(t, `
log_level = "loud"
credential_store = "keychain"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "credential_store")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, `
api_url = "https://file.example.com/api"
credential_store = "bolt"
`)

	t.Run("file", func(t *testing.T) {
		r, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
		require.NoError(t, err)
		assert.Equal(t, "https://file.example.com/api", r.APIURL)
		assert.Equal(t, "bolt", r.CredentialStore)
		assert.Equal(t, path, r.Path)
	})

	t.Run("env beats file", func(t *testing.T) {
		r, err := Resolve(EnvOverrides{
			ConfigPath:      path,
			APIURL:          "https://env.example.com/api",
			CredentialStore: "memory",
		}, CLIOverrides{})
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com/api", r.APIURL)
		assert.Equal(t, "memory", r.CredentialStore)
	})

	t.Run("cli beats env", func(t *testing.T) {
		r, err := Resolve(
			EnvOverrides{ConfigPath: "/does/not/exist.toml", APIURL: "https://env.example.com/api"},
			CLIOverrides{ConfigPath: path, APIURL: "https://cli.example.com/api/"},
		)
		require.NoError(t, err)
		assert.Equal(t, "https://cli.example.com/api", r.APIURL, "trailing slash trimmed")
		assert.Equal(t, path, r.Path)
	})
}

func TestResolve_InvalidOverrideRejected(t *testing.T) {
	_, err := Resolve(EnvOverrides{
		ConfigPath:      filepath.Join(t.TempDir(), "none.toml"),
		CredentialStore: "keychain",
	}, CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential_store")
}

func TestResolved_Timeout(t *testing.T) {
	r := &Resolved{Config: *DefaultConfig()}
	assert.Equal(t, 30*time.Second, r.Timeout())

	r.RequestTimeout = "garbage"
	assert.Zero(t, r.Timeout())
}

func TestResolved_CredentialFile(t *testing.T) {
	r := &Resolved{Config: *DefaultConfig()}
	r.CredentialPath = "/tmp/creds.json"
	assert.Equal(t, "/tmp/creds.json", r.CredentialFile())

	r.CredentialPath = ""
	r.CredentialStore = "memory"
	assert.Empty(t, r.CredentialFile())
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "creds.db"), expandTilde("~/creds.db"))
	assert.Equal(t, "/abs/creds.db", expandTilde("/abs/creds.db"))
	assert.Equal(t, "", expandTilde(""))
}
