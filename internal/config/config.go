package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Polling holds the monitor timings of one game
type Polling struct {
	DormantInterval time.Duration `env:"DORMANT_INTERVAL" envDefault:"2m"`
	ActiveInterval  time.Duration `env:"ACTIVE_INTERVAL" envDefault:"30s"`
	LeaveGrace      time.Duration `env:"LEAVE_GRACE" envDefault:"0s"`
}

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	// DiscordApplicationID defaults to the bot user id when empty
	DiscordApplicationID string `env:"DISCORD_APPLICATION_ID"`

	// Riot API
	RiotAPIKey   string `env:"RIOT_API_KEY,required,notEmpty"`
	RiotRegion   string `env:"RIOT_REGION" envDefault:"europe"`
	RiotPlatform string `env:"RIOT_PLATFORM" envDefault:"euw1"`

	// Steam / CS2. CS2 tracking is disabled without a Steam key.
	SteamAPIKey string `env:"STEAM_API_KEY"`
	CS2StatsURL string `env:"CS2_STATS_URL" envDefault:"http://localhost:5000"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/bot.db"`
	// RedisURL enables cross-process match claims when set
	RedisURL string        `env:"REDIS_URL"`
	ClaimTTL time.Duration `env:"CLAIM_TTL" envDefault:"24h"`

	// Polling
	LoL Polling `envPrefix:"LOL_"`
	CS2 Polling `envPrefix:"CS2_"`

	TokenPollInterval time.Duration `env:"TOKEN_POLL_INTERVAL" envDefault:"30s"`
	FetchAttempts     int           `env:"FETCH_ATTEMPTS" envDefault:"5"`
	FetchBaseDelay    time.Duration `env:"FETCH_BASE_DELAY" envDefault:"10s"`
	FetchMaxDelay     time.Duration `env:"FETCH_MAX_DELAY" envDefault:"2m"`
	MinMatchDuration  time.Duration `env:"MIN_MATCH_DURATION" envDefault:"5m"`

	// Betting
	BetCutoff       time.Duration `env:"BET_CUTOFF" envDefault:"10m"`
	StartingBalance int           `env:"STARTING_BALANCE" envDefault:"1000"`

	// ShutdownTimeout bounds how long in-flight matches may take to be
	// ledgered on exit
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"45s"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.FetchAttempts < 1 {
		return fmt.Errorf("FETCH_ATTEMPTS must be at least 1")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.BetCutoff <= 0 {
		return fmt.Errorf("BET_CUTOFF must be positive")
	}
	for name, p := range map[string]Polling{"LOL": c.LoL, "CS2": c.CS2} {
		if p.DormantInterval <= 0 || p.ActiveInterval <= 0 {
			return fmt.Errorf("%s polling intervals must be positive", name)
		}
	}
	return nil
}
