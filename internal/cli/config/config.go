// Package config loads the CLI configuration from sideload.yml and the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the sideload CLI configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// ServerConfig points the client at a JSON:API server.
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// AuthConfig carries the bearer token sent with every request, and the
// signing secret the serve and token commands share.
type AuthConfig struct {
	Token    string        `mapstructure:"token"`
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// CacheConfig enables the Redis document cache when an address is set.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Load loads the configuration from sideload.yml or sideload.yaml in the
// working directory, with environment variables overriding file values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.retries", 2)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetConfigName("sideload")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SIDELOAD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
