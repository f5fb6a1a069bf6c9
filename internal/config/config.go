// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	BackendURL         string `mapstructure:"BACKEND_URL"`
	RedisURL           string `mapstructure:"REDIS_URL"`
	PollIntervalMS     int    `mapstructure:"POLL_INTERVAL_MS"`
	AlertTTLMS         int    `mapstructure:"ALERT_TTL_MS"`
	RequestTimeoutMS   int    `mapstructure:"REQUEST_TIMEOUT_MS"`
	AssetThumbnailSize int    `mapstructure:"ASSET_THUMBNAIL_SIZE"`
	AssetMaxPayloadMB  int    `mapstructure:"ASSET_MAX_PAYLOAD_MB"`
	Env                string `mapstructure:"APP_ENV"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The config file is optional; env vars and defaults cover development.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			log.Printf("no profile-specific config 'config.%s.yml' found, using base config", env)
		}
	}

	viper.SetDefault("BACKEND_URL", "http://localhost:8375")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("POLL_INTERVAL_MS", 1000)
	viper.SetDefault("ALERT_TTL_MS", 5000)
	viper.SetDefault("REQUEST_TIMEOUT_MS", 10000)
	viper.SetDefault("ASSET_THUMBNAIL_SIZE", 256)
	viper.SetDefault("ASSET_MAX_PAYLOAD_MB", 10)
	viper.SetDefault("APP_ENV", "development")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and sane.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if c.PollIntervalMS <= 0 {
		return errors.New("POLL_INTERVAL_MS must be positive")
	}
	if c.AlertTTLMS <= 0 {
		return errors.New("ALERT_TTL_MS must be positive")
	}
	if c.RequestTimeoutMS <= 0 {
		return errors.New("REQUEST_TIMEOUT_MS must be positive")
	}
	if c.AssetThumbnailSize <= 0 {
		return errors.New("ASSET_THUMBNAIL_SIZE must be positive")
	}
	return nil
}
