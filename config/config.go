package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Plaid    PlaidConfig
	Gemini   GeminiConfig
	Sync     SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	DSN string
}

// PlaidConfig holds aggregator credentials.
type PlaidConfig struct {
	BaseURL  string
	ClientID string
	Secret   string
}

// GeminiConfig holds AI analysis settings.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// SyncConfig tunes the persistence layer during sync and CSV import.
type SyncConfig struct {
	BatchSize       int
	BatchDelayMilli int
}

// Load reads configuration from an optional file and env. Env var overrides
// use prefix SVEND_, e.g. SVEND_DATABASE_DSN.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("server.port", "3000")
	v.SetDefault("database.dsn", "")
	v.SetDefault("plaid.base_url", "https://sandbox.plaid.com")
	v.SetDefault("plaid.client_id", "")
	v.SetDefault("plaid.secret", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("sync.batch_size", 100)
	v.SetDefault("sync.batch_delay_milli", 0)

	v.SetConfigType("yaml")

	if cfgPath := os.Getenv("SVEND_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	v.SetEnvPrefix("SVEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("database.dsn"),
		},
		Plaid: PlaidConfig{
			BaseURL:  v.GetString("plaid.base_url"),
			ClientID: v.GetString("plaid.client_id"),
			Secret:   v.GetString("plaid.secret"),
		},
		Gemini: GeminiConfig{
			APIKey: v.GetString("gemini.api_key"),
			Model:  v.GetString("gemini.model"),
		},
		Sync: SyncConfig{
			BatchSize:       v.GetInt("sync.batch_size"),
			BatchDelayMilli: v.GetInt("sync.batch_delay_milli"),
		},
	}

	// Legacy env names kept working for existing deployments.
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_URL")
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if cfg.Database.DSN == "" {
		return Config{}, fmt.Errorf("database DSN not set (SVEND_DATABASE_DSN or DATABASE_URL)")
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = 100
	}
	return cfg, nil
}
