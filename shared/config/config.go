package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Credential source modes.
const (
	CredentialSourceFile   = "file"
	CredentialSourceInline = "inline"
)

// Digest range modes.
const (
	DigestRangeLastMonth   = "last-month"
	DigestRangeMonthToDate = "month-to-date"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Reports    ReportsConfig    `yaml:"reports"`
	Digest     DigestConfig     `yaml:"digest"`
	AI         AIConfig         `yaml:"ai"`
	Email      EmailConfig      `yaml:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	LogLevel   string           `yaml:"log_level"`
}

type YouTubeConfig struct {
	ClientID            string        `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret        string        `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile           string        `yaml:"token_file"`
	CredentialSource    string        `yaml:"credential_source"`
	ClientSecretJSON    string        `yaml:"client_secret_json" env:"CLIENT_SECRET"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	TokenRefreshMinutes int           `yaml:"token_refresh_minutes"`
}

type ReportsConfig struct {
	// DefaultLimits overrides the built-in result limit per report id.
	DefaultLimits map[string]int `yaml:"default_limits"`
}

type DigestConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Schedule string   `yaml:"schedule"`
	Range    string   `yaml:"range"`
	Reports  []string `yaml:"reports"`
	DataDir  string   `yaml:"data_dir"`
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

// CredentialSourceConfig selects where OAuth credentials come from. It is
// built once at startup and handed to the credential provider.
type CredentialSourceConfig struct {
	Mode         string
	ClientID     string
	ClientSecret string
	TokenFile    string
	// InlineSecret is the authorized-user JSON (client_id, client_secret, refresh_token).
	InlineSecret string
}

// InlineSecret is the decoded form of an authorized-user JSON document.
type InlineSecret struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token,omitempty"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return Parse(data)
}

// Parse decodes YAML config, fills environment fallbacks and defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.YouTube.ClientSecretJSON == "" {
		c.YouTube.ClientSecretJSON = os.Getenv("CLIENT_SECRET")
	}
	if c.YouTube.CredentialSource == "" {
		c.YouTube.CredentialSource = strings.ToLower(os.Getenv("CREDENTIAL_SOURCE"))
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv("LOG_LEVEL")
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.YouTube.CredentialSource == "" {
		c.YouTube.CredentialSource = CredentialSourceFile
	}
	if c.YouTube.RequestTimeout <= 0 {
		c.YouTube.RequestTimeout = 30 * time.Second
	}
	if c.YouTube.TokenRefreshMinutes <= 0 {
		c.YouTube.TokenRefreshMinutes = 45
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 0 9 2 * *" // 09:00 on the 2nd of each month
	}
	if c.Digest.Range == "" {
		c.Digest.Range = DigestRangeLastMonth
	}
	if c.Digest.DataDir == "" {
		c.Digest.DataDir = "data"
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	switch c.YouTube.CredentialSource {
	case CredentialSourceFile:
		if c.YouTube.ClientID == "" {
			return fmt.Errorf("YouTube client ID is required (set GOOGLE_CLIENT_ID or youtube.client_id)")
		}
		if c.YouTube.ClientSecret == "" {
			return fmt.Errorf("YouTube client secret is required (set GOOGLE_CLIENT_SECRET or youtube.client_secret)")
		}
	case CredentialSourceInline:
		if _, err := ParseInlineSecret(c.YouTube.ClientSecretJSON); err != nil {
			return fmt.Errorf("inline credential source: %w", err)
		}
	default:
		return fmt.Errorf("unknown credential source %q (want %q or %q)",
			c.YouTube.CredentialSource, CredentialSourceFile, CredentialSourceInline)
	}

	switch c.Digest.Range {
	case DigestRangeLastMonth, DigestRangeMonthToDate:
	default:
		return fmt.Errorf("unknown digest range %q", c.Digest.Range)
	}

	if c.Digest.Enabled {
		if c.Email.Username == "" {
			return fmt.Errorf("Email username is required for the digest (set EMAIL_USERNAME or email.username)")
		}
		if c.Email.Password == "" {
			return fmt.Errorf("Email password is required for the digest (set EMAIL_PASSWORD or email.password)")
		}
		if c.Email.ToEmail == "" {
			return fmt.Errorf("email.to_email is required for the digest")
		}
	}

	for id, limit := range c.Reports.DefaultLimits {
		if limit < 0 {
			return fmt.Errorf("reports.default_limits.%s must not be negative", id)
		}
	}
	return nil
}

// CredentialSource builds the injected credential selection.
func (c *Config) CredentialSource() CredentialSourceConfig {
	return CredentialSourceConfig{
		Mode:         c.YouTube.CredentialSource,
		ClientID:     c.YouTube.ClientID,
		ClientSecret: c.YouTube.ClientSecret,
		TokenFile:    c.YouTube.TokenFile,
		InlineSecret: c.YouTube.ClientSecretJSON,
	}
}

// ParseInlineSecret accepts either the bare authorized-user JSON or the
// {"installed": {...}} wrapper Google hands out for desktop clients.
func ParseInlineSecret(raw string) (*InlineSecret, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("CLIENT_SECRET is empty")
	}

	var wrapped struct {
		Installed *InlineSecret `json:"installed"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("CLIENT_SECRET is not valid JSON: %w", err)
	}

	secret := wrapped.Installed
	if secret == nil {
		secret = &InlineSecret{}
		if err := json.Unmarshal([]byte(raw), secret); err != nil {
			return nil, fmt.Errorf("CLIENT_SECRET is not valid JSON: %w", err)
		}
	}

	if secret.ClientID == "" || secret.ClientSecret == "" {
		return nil, fmt.Errorf("CLIENT_SECRET must contain client_id and client_secret")
	}
	return secret, nil
}
