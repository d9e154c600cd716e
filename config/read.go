package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ReadConfig reads the configuration from the specified JSON file.
// Secrets can be overridden through the environment (GEMINI_API_KEY,
// JWT_SECRET, DATABASE_URL).
func ReadConfig(configPath string) (Config, error) {
	var cfg Config

	viper.SetConfigFile(configPath)
	viper.SetConfigType("json")

	for _, key := range []string{"gemini_api_key", "jwt_secret", "database_url"} {
		if err := viper.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// MustReadConfig reads the configuration or panics if there's an error.
func MustReadConfig(configPath string) Config {
	cfg, err := ReadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return cfg
}
