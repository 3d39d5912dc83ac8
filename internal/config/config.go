package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Storage
	DataDir          string
	DatabasePath     string
	RequirementsPath string // University scholarship-requirements JSON

	// Reconciliation job schedules (cron expressions)
	ExpirePointsSchedule         string
	RecalculateInventorySchedule string
	FixScholarshipsSchedule      string
	CycleResetSchedule           string

	// Elasticsearch reporting, disabled when URL is empty
	ElasticsearchURL         string
	ElasticsearchUsername    string
	ElasticsearchPassword    string
	ElasticsearchIndexPrefix string

	// Discord admin notifications, disabled when token is empty
	DiscordToken     string
	DiscordChannelID string

	// Environment
	Environment string // "development" or "production"
	LogLevel    string
	Location    *time.Location
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	dataDir := getEnvWithDefault("DATA_DIR", filepath.Join(wd, "data"))

	location, err := time.LoadLocation(getEnvWithDefault("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg := &Config{
		DataDir:          dataDir,
		DatabasePath:     getEnvWithDefault("DATABASE_PATH", filepath.Join(dataDir, "agentledger.db")),
		RequirementsPath: getEnvWithDefault("REQUIREMENTS_PATH", filepath.Join(wd, "scholarship_requirements.json")),

		ExpirePointsSchedule:         getEnvWithDefault("EXPIRE_POINTS_SCHEDULE", "5 0 * * *"),
		RecalculateInventorySchedule: getEnvWithDefault("RECALCULATE_INVENTORY_SCHEDULE", "0 * * * *"),
		FixScholarshipsSchedule:      getEnvWithDefault("FIX_SCHOLARSHIPS_SCHEDULE", "30 1 * * *"),
		CycleResetSchedule:           getEnvWithDefault("CYCLE_RESET_SCHEDULE", "0 0 1 7 *"),

		ElasticsearchURL:         os.Getenv("ELASTICSEARCH_URL"),
		ElasticsearchUsername:    os.Getenv("ELASTICSEARCH_USERNAME"),
		ElasticsearchPassword:    os.Getenv("ELASTICSEARCH_PASSWORD"),
		ElasticsearchIndexPrefix: getEnvWithDefault("ELASTICSEARCH_INDEX_PREFIX", "agentledger"),

		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Location:    location,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// validate checks that enabled integrations are fully configured
func (c *Config) validate() error {
	if c.DiscordToken != "" && c.DiscordChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}
	if c.ElasticsearchUsername != "" && c.ElasticsearchPassword == "" {
		return fmt.Errorf("ELASTICSEARCH_PASSWORD is required when ELASTICSEARCH_USERNAME is set")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ReportingEnabled reports whether Elasticsearch snapshots should be indexed
func (c *Config) ReportingEnabled() bool {
	return c.ElasticsearchURL != ""
}

// NotificationsEnabled reports whether Discord notifications should be sent
func (c *Config) NotificationsEnabled() bool {
	return c.DiscordToken != ""
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
