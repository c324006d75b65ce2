package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/devpub/internal/forem"
	"github.com/starford/devpub/internal/storage"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// DefaultAPIKeyEnv names the environment variable holding the API key.
const DefaultAPIKeyEnv = "DEVTO_API_KEY"

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Forem    ForemConfig       `yaml:"forem"`
	Articles ArticlesConfig    `yaml:"articles"`
	Watch    WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Forem.Validate(); err != nil {
		return fmt.Errorf("forem: %w", err)
	}
	if err := c.Articles.Validate(); err != nil {
		return fmt.Errorf("articles: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// ForemConfig holds the remote API configuration. The API key itself is
// never stored in the file; APIKeyEnv names the variable that carries it.
type ForemConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// Validate validates the API configuration.
func (c *ForemConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.APIKeyEnv, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ArticlesConfig holds the location of the article files.
type ArticlesConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// Validate validates the articles configuration.
func (c *ArticlesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Extension, validation.Required),
	)
}

// WatchConfig holds watch mode configuration.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(time.Millisecond)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		Forem: ForemConfig{
			BaseURL:   forem.DefaultBaseURL,
			APIKeyEnv: DefaultAPIKeyEnv,
			Timeout:   forem.DefaultTimeout,
		},
		Articles: ArticlesConfig{
			Dir:       "articles",
			Extension: storage.DefaultExt,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}
