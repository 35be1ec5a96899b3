package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// Telegram bot token used as the initData signing secret.
	BotToken string

	// InitDataTTL bounds how old a signed payload may be, in seconds.
	// 0 disables the freshness check.
	InitDataTTL int64

	// DebugInitData enables diagnostic logging of check strings and digests.
	DebugInitData bool

	// PublicBase is the upstream content host the catalog proxy reads from.
	PublicBase string

	Host     string
	Port     string
	DBPath   string
	LogLevel string

	// FrontendDir is served as static files when it exists.
	FrontendDir string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:      os.Getenv("BOT_TOKEN"),
		InitDataTTL:   getInt64Env("INITDATA_TTL", 86400),
		DebugInitData: os.Getenv("DEBUG_INITDATA") == "1",
		PublicBase:    os.Getenv("PUBLIC_BASE"),
		Host:          getEnv("HOST", "0.0.0.0"),
		Port:          getEnv("PORT", "8000"),
		DBPath:        getEnv("DB_PATH", "./data/mangalair.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		FrontendDir:   getEnv("FRONTEND_DIR", "./frontend"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.InitDataTTL < 0 {
		return fmt.Errorf("INITDATA_TTL must be >= 0")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
