// Package config holds runtime settings for the server. Values flow from
// defaults, then environment and flags via the command layer.
package config

import (
	"fmt"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	HTTP      *HTTPConfig      `mapstructure:"http"`
	WebSocket *WebSocketConfig `mapstructure:"websocket"`
	Catalog   *CatalogConfig   `mapstructure:"catalog"`
	PublicURL string           `mapstructure:"public_url"`
	LogLevel  string           `mapstructure:"log_level"`
}

// HTTPConfig covers the listener and request timeouts.
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// WebSocketConfig covers origin checking for the upgrade endpoint.
type WebSocketConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig covers the TMDB client. An empty APIKey switches the
// catalog to its built-in movie list.
type CatalogConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Language  string        `mapstructure:"language"`
	BatchSize int           `mapstructure:"batch_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			AllowedOrigins: nil,
		},
		Catalog: &CatalogConfig{
			BaseURL:   "https://api.themoviedb.org/3",
			Language:  "en-US",
			BatchSize: 20,
			CacheTTL:  10 * time.Minute,
		},
		PublicURL: "http://localhost:8080",
		LogLevel:  "info",
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}

	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}

	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}

	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}

	if c.Catalog == nil {
		return fmt.Errorf("catalog configuration is required")
	}

	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base URL cannot be empty")
	}

	if c.Catalog.BatchSize <= 0 {
		return fmt.Errorf("catalog batch size must be positive")
	}

	if c.Catalog.CacheTTL <= 0 {
		return fmt.Errorf("catalog cache TTL must be positive")
	}

	if c.PublicURL == "" {
		return fmt.Errorf("public URL cannot be empty")
	}

	return nil
}
