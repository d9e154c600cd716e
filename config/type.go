package config

import "time"

type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Empty DatabaseURL selects an in-memory SQLite store (tests, local runs).
	DatabaseURL string `mapstructure:"database_url"`
	// Empty RedisURL selects in-memory presence and disables the history cache.
	RedisURL string `mapstructure:"redis_url"`
	// Empty NATSURL delivers events directly through the in-process hub.
	NATSURL string `mapstructure:"nats_url"`

	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes"`

	// HistoryLimit bounds the history returned on join (0 = full history).
	HistoryLimit int `mapstructure:"history_limit"`

	BotRoom   string `mapstructure:"bot_room"`
	BotUserID string `mapstructure:"bot_user_id"`
	BotName   string `mapstructure:"bot_name"`

	GeminiAPIKey            string `mapstructure:"gemini_api_key"`
	GeminiAPIBase           string `mapstructure:"gemini_api_base"`
	GeminiModel             string `mapstructure:"gemini_model"`
	ResponderTimeoutSeconds int    `mapstructure:"responder_timeout_seconds"`
}

// TokenTTL returns the configured access token lifetime.
func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// ResponderTimeout returns the per-call budget for the responder.
func (c Config) ResponderTimeout() time.Duration {
	if c.ResponderTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ResponderTimeoutSeconds) * time.Second
}
