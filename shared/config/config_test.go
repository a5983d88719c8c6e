package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loader falls back to.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "CLIENT_SECRET", "CREDENTIAL_SOURCE",
		"GEMINI_API_KEY", "EMAIL_USERNAME", "EMAIL_PASSWORD", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(`
youtube:
  client_id: id
  client_secret: secret
`))
	require.NoError(t, err)

	assert.Equal(t, "youtube_token.json", cfg.YouTube.TokenFile)
	assert.Equal(t, CredentialSourceFile, cfg.YouTube.CredentialSource)
	assert.Equal(t, 30*time.Second, cfg.YouTube.RequestTimeout)
	assert.Equal(t, 45, cfg.YouTube.TokenRefreshMinutes)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "0 0 9 2 * *", cfg.Digest.Schedule)
	assert.Equal(t, DigestRangeLastMonth, cfg.Digest.Range)
	assert.Equal(t, "data", cfg.Digest.DataDir)
	assert.Equal(t, 8080, cfg.Monitoring.HealthPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseFull(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(`
youtube:
  client_id: id
  client_secret: secret
  token_file: /var/lib/insights/token.json
  request_timeout: 10s
reports:
  default_limits:
    top-revenue: 25
digest:
  enabled: true
  range: month-to-date
  reports: [stats, top-revenue]
email:
  username: bot
  password: pw
  to_email: owner@example.com
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.YouTube.RequestTimeout)
	assert.Equal(t, map[string]int{"top-revenue": 25}, cfg.Reports.DefaultLimits)
	assert.Equal(t, []string{"stats", "top-revenue"}, cfg.Digest.Reports)
	assert.Equal(t, DigestRangeMonthToDate, cfg.Digest.Range)

	src := cfg.CredentialSource()
	assert.Equal(t, CredentialSourceConfig{
		Mode:         CredentialSourceFile,
		ClientID:     "id",
		ClientSecret: "secret",
		TokenFile:    "/var/lib/insights/token.json",
	}, src)
}

func TestParseEnvironmentFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREDENTIAL_SOURCE", "INLINE")
	t.Setenv("CLIENT_SECRET", `{"client_id":"id","client_secret":"secret","refresh_token":"rt"}`)
	t.Setenv("GEMINI_API_KEY", "gm")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, CredentialSourceInline, cfg.YouTube.CredentialSource)
	assert.Equal(t, "gm", cfg.AI.GeminiAPIKey)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, CredentialSourceInline, cfg.CredentialSource().Mode)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"MissingClientID", "youtube: {client_secret: s}"},
		{"MissingClientSecret", "youtube: {client_id: i}"},
		{"UnknownSource", "youtube: {credential_source: vault}"},
		{"BadInlineSecret", "youtube: {credential_source: inline, client_secret_json: '{}'}"},
		{"UnknownRange", "youtube: {client_id: i, client_secret: s}\ndigest: {range: weekly}"},
		{"DigestWithoutEmail", "youtube: {client_id: i, client_secret: s}\ndigest: {enabled: true}"},
		{"NegativeLimit", "youtube: {client_id: i, client_secret: s}\nreports: {default_limits: {shares: -1}}"},
		{"NotYAML", "youtube: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("youtube: {client_id: i, client_secret: s}\n"), 0600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "i", cfg.YouTube.ClientID)

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.Error(t, err)
}

func TestParseInlineSecret(t *testing.T) {
	secret, err := ParseInlineSecret(`{"installed": {"client_id": "id", "client_secret": "s", "refresh_token": "rt"}}`)
	require.NoError(t, err)
	assert.Equal(t, &InlineSecret{ClientID: "id", ClientSecret: "s", RefreshToken: "rt"}, secret)

	secret, err = ParseInlineSecret(`{"client_id": "id", "client_secret": "s"}`)
	require.NoError(t, err)
	assert.Empty(t, secret.RefreshToken)

	for _, bad := range []string{"", "   ", "nope", `{"client_id": "id"}`} {
		_, err := ParseInlineSecret(bad)
		assert.Error(t, err, bad)
	}
}
