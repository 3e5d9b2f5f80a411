package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAPIKey          = "COMPOSIO_API_KEY"
	EnvUserID          = "COMPOSIO_USER_ID"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvBaseURL         = "COMPOSIO_BASE_URL"
	EnvModel           = "GMAIL_AGENT_MODEL"
	EnvAuthTimeout     = "GMAIL_AGENT_AUTH_TIMEOUT"
	EnvPollInterval    = "GMAIL_AGENT_POLL_INTERVAL"
	EnvCallbackURL     = "GMAIL_AGENT_CALLBACK_URL"
	EnvLogLevel        = "LOG_LEVEL"
)

// Defaults.
const (
	DefaultEnvFile      = ".env"
	DefaultBaseURL      = "https://backend.composio.dev"
	DefaultModel        = "claude-sonnet-4-5"
	DefaultAuthTimeout  = 180 * time.Second
	DefaultPollInterval = 2 * time.Second
	DefaultCallbackURL  = "https://q-signals-production.up.railway.app/oauth/callback"
	DefaultLogLevel     = "warn"
)

// ErrMissingAPIKey is returned when COMPOSIO_API_KEY is not set.
var ErrMissingAPIKey = errors.New(EnvAPIKey + " environment variable not set")

// Credentials are the secrets read from the environment at startup.
type Credentials struct {
	APIKey          string
	UserID          string
	AnthropicAPIKey string
}

// Settings are the non-secret knobs read from the environment.
type Settings struct {
	BaseURL      string
	Model        string
	AuthTimeout  time.Duration
	PollInterval time.Duration
	CallbackURL  string
	LogLevel     string
}

var initOnce sync.Once

// Init loads the env file at path into the process environment. A missing
// file is not an error. Only the first call has any effect.
func Init(path string) error {
	var err error
	initOnce.Do(func() {
		err = loadEnvFile(path)
	})
	return err
}

func loadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadCredentials reads the credentials from the environment. It fails only
// when the API key is absent; the user id is passed through unvalidated.
func LoadCredentials() (Credentials, error) {
	creds := Credentials{
		APIKey:          strings.TrimSpace(os.Getenv(EnvAPIKey)),
		UserID:          os.Getenv(EnvUserID),
		AnthropicAPIKey: os.Getenv(EnvAnthropicAPIKey),
	}
	if creds.APIKey == "" {
		return Credentials{}, ErrMissingAPIKey
	}
	return creds, nil
}

// LoadSettings reads the settings from the environment, falling back to the
// defaults for unset or unparsable values.
func LoadSettings() Settings {
	return Settings{
		BaseURL:      getEnvOrDefault(EnvBaseURL, DefaultBaseURL),
		Model:        getEnvOrDefault(EnvModel, DefaultModel),
		AuthTimeout:  getEnvDurationOrDefault(EnvAuthTimeout, DefaultAuthTimeout),
		PollInterval: getEnvDurationOrDefault(EnvPollInterval, DefaultPollInterval),
		CallbackURL:  getEnvOrDefault(EnvCallbackURL, DefaultCallbackURL),
		LogLevel:     getEnvOrDefault(EnvLogLevel, DefaultLogLevel),
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDurationOrDefault returns the duration value of an environment variable or a default value.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
