// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	DBURL    string `mapstructure:"DB_URL"`

	GithubToken string `mapstructure:"GITHUB_TOKEN"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `mapstructure:"TELEGRAM_CHAT_ID"`

	GroqAPIKey    string `mapstructure:"GROQ_API_KEY"`
	GroqModel     string `mapstructure:"GROQ_MODEL"`
	GeneratorMode string `mapstructure:"GENERATOR_MODE"`

	WatchedFile     string        `mapstructure:"WATCHED_FILE"`
	OrgSyncInterval time.Duration `mapstructure:"ORG_SYNC_INTERVAL"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("GROQ_MODEL", "meta-llama/llama-4-maverick-17b-128e-instruct")
	viper.SetDefault("GENERATOR_MODE", "full")
	viper.SetDefault("WATCHED_FILE", "CHANGELOG.md")
	viper.SetDefault("ORG_SYNC_INTERVAL", "0")

	// Required fields default to empty so Unmarshal sees the keys when they
	// arrive via environment variables only.
	viper.SetDefault("DB_URL", "")
	viper.SetDefault("GITHUB_TOKEN", "")
	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("TELEGRAM_CHAT_ID", "")
	viper.SetDefault("GROQ_API_KEY", "")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.GithubToken == "" {
		return nil, errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if cfg.TelegramBotToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is a required configuration field")
	}
	if cfg.TelegramChatID == "" {
		return nil, errors.New("TELEGRAM_CHAT_ID is a required configuration field")
	}
	if cfg.GeneratorMode != "full" && cfg.GeneratorMode != "summary" {
		return nil, errors.New("GENERATOR_MODE must be either 'full' or 'summary'")
	}

	return &cfg, nil
}
