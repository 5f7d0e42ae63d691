package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	NATS     NATSConfig     `yaml:"nats"`
	Discord  DiscordConfig  `yaml:"discord"`
	API      APIConfig      `yaml:"api"`
	Club     ClubConfig     `yaml:"club"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// DiscordConfig holds Discord configuration.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	GuildID string `yaml:"guild_id"`
}

// APIConfig holds the HTTP projection configuration.
type APIConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`
}

// ClubConfig holds the category layout for the club subsystem.
type ClubConfig struct {
	// PopularCategoryID always holds the top ranked clubs.
	PopularCategoryID string `yaml:"popular_category_id"`
	// ClubCategoryIDs is the ordered overflow sequence for everything below the top.
	ClubCategoryIDs []string `yaml:"club_category_ids"`
	// Archive categories for zero-activity clubs, in fill order.
	ArchiveCategoryID         string `yaml:"archive_category_id"`
	ArchiveOverflowCategoryID string `yaml:"archive_overflow_category_id"`
	// ExcludedChannelIDs are never ranked (rules channel, club-creation panel, etc.).
	ExcludedChannelIDs []string `yaml:"excluded_channel_ids"`
	// LeaderboardChannelID is where the permanent ranking message lives.
	LeaderboardChannelID string `yaml:"leaderboard_channel_id"`
	// FlushInterval is how often the in-memory message counts are persisted.
	FlushInterval time.Duration `yaml:"flush_interval"`
	// PassInterval is how often a full reorganization pass runs.
	PassInterval time.Duration `yaml:"pass_interval"`
	// LeaderboardRefreshInterval is how often the ranking message is rewritten.
	LeaderboardRefreshInterval time.Duration `yaml:"leaderboard_refresh_interval"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		cfg.Discord.GuildID = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.API.Token = v
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.NATS.URL = os.Getenv("NATS_URL")
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}

	cfg.Discord.Token = os.Getenv("DISCORD_TOKEN")
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable not set")
	}
	cfg.Discord.GuildID = os.Getenv("DISCORD_GUILD_ID")
	if cfg.Discord.GuildID == "" {
		return nil, fmt.Errorf("DISCORD_GUILD_ID environment variable not set")
	}

	cfg.API.Addr = os.Getenv("API_ADDR")
	cfg.API.Token = os.Getenv("API_TOKEN")

	cfg.Club.PopularCategoryID = os.Getenv("CLUB_POPULAR_CATEGORY_ID")
	if v := os.Getenv("CLUB_CATEGORY_IDS"); v != "" {
		cfg.Club.ClubCategoryIDs = strings.Split(v, ",")
	}
	cfg.Club.ArchiveCategoryID = os.Getenv("CLUB_ARCHIVE_CATEGORY_ID")
	cfg.Club.ArchiveOverflowCategoryID = os.Getenv("CLUB_ARCHIVE_OVERFLOW_CATEGORY_ID")
	if v := os.Getenv("CLUB_EXCLUDED_CHANNEL_IDS"); v != "" {
		cfg.Club.ExcludedChannelIDs = strings.Split(v, ",")
	}
	cfg.Club.LeaderboardChannelID = os.Getenv("CLUB_LEADERBOARD_CHANNEL_ID")

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.Addr == "" {
		c.API.Addr = ":3000"
	}
	if c.Club.FlushInterval == 0 {
		c.Club.FlushInterval = 10 * time.Minute
	}
	if c.Club.PassInterval == 0 {
		c.Club.PassInterval = 24 * time.Hour
	}
	if c.Club.LeaderboardRefreshInterval == 0 {
		c.Club.LeaderboardRefreshInterval = time.Hour
	}
}

func (c *Config) validate() error {
	if c.Club.PopularCategoryID == "" {
		return fmt.Errorf("club popular category id is not configured")
	}
	if len(c.Club.ClubCategoryIDs) == 0 {
		return fmt.Errorf("no club category ids configured")
	}
	return nil
}
