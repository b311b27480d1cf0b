package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"dicebank/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Ledger configuration
	StartingBalance int64
	HouseAccountID  int64 // Receives the 1% commission of every settled bank

	// Duel configuration
	DuelMinStake               int64
	DuelCancelWindow           time.Duration
	DuelResolveJoinedOnStartup bool
	HistoryLimit               int

	// Raffle configuration
	RaffleMinBet          int64
	RaffleMaxBetsPerRound int
	RaffleTimer           time.Duration
	RaffleDrawRetryDelay  time.Duration

	// Rating configuration
	RatingWindowDays int
	RatingCacheTTL   time.Duration

	// Write-behind queue configuration
	WriteBehindWorkers     int
	WriteBehindQueueSize   int
	WriteBehindMaxAttempts int

	// NATS configuration
	NATSServers string // Empty disables event publishing

	// Redis configuration
	RedisAddr string // Empty disables the rating cache

	// Notifier configuration
	Notifier      string // "log", "telegram" or "discord"
	TelegramToken string
	DiscordToken  string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int
	OTelServiceName          string

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := defaults()

	config.DatabaseURL = os.Getenv("DATABASE_URL")
	config.DatabaseName = os.Getenv("DATABASE_NAME")
	config.NATSServers = os.Getenv("NATS_SERVERS")
	config.RedisAddr = os.Getenv("REDIS_ADDR")
	config.Notifier = getEnvWithDefault("NOTIFIER", config.Notifier)
	config.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	config.DiscordToken = os.Getenv("DISCORD_TOKEN")
	config.OTelExporterType = getEnvWithDefault("OTEL_EXPORTER_TYPE", config.OTelExporterType)
	config.OTelOTLPEndpoint = getEnvWithDefault("OTEL_OTLP_ENDPOINT", config.OTelOTLPEndpoint)
	config.OTelServiceName = getEnvWithDefault("OTEL_SERVICE_NAME", config.OTelServiceName)
	config.LogLevel = getEnvWithDefault("LOG_LEVEL", config.LogLevel)
	config.Environment = os.Getenv("ENVIRONMENT")

	var err error
	if config.StartingBalance, err = getInt64("STARTING_BALANCE", config.StartingBalance); err != nil {
		return nil, err
	}
	if config.HouseAccountID, err = getInt64("HOUSE_ACCOUNT_ID", config.HouseAccountID); err != nil {
		return nil, err
	}
	if config.DuelMinStake, err = getInt64("DUEL_MIN_STAKE", config.DuelMinStake); err != nil {
		return nil, err
	}
	if config.DuelCancelWindow, err = getDuration("DUEL_CANCEL_WINDOW", config.DuelCancelWindow); err != nil {
		return nil, err
	}
	if config.DuelResolveJoinedOnStartup, err = getBool("DUEL_RESOLVE_JOINED_ON_STARTUP", config.DuelResolveJoinedOnStartup); err != nil {
		return nil, err
	}
	if config.HistoryLimit, err = getInt("HISTORY_LIMIT", config.HistoryLimit); err != nil {
		return nil, err
	}
	if config.RaffleMinBet, err = getInt64("RAFFLE_MIN_BET", config.RaffleMinBet); err != nil {
		return nil, err
	}
	if config.RaffleMaxBetsPerRound, err = getInt("RAFFLE_MAX_BETS_PER_ROUND", config.RaffleMaxBetsPerRound); err != nil {
		return nil, err
	}
	if config.RaffleTimer, err = getDuration("RAFFLE_TIMER", config.RaffleTimer); err != nil {
		return nil, err
	}
	if config.RaffleDrawRetryDelay, err = getDuration("RAFFLE_DRAW_RETRY_DELAY", config.RaffleDrawRetryDelay); err != nil {
		return nil, err
	}
	if config.RatingWindowDays, err = getInt("RATING_WINDOW_DAYS", config.RatingWindowDays); err != nil {
		return nil, err
	}
	if config.RatingCacheTTL, err = getDuration("RATING_CACHE_TTL", config.RatingCacheTTL); err != nil {
		return nil, err
	}
	if config.WriteBehindWorkers, err = getInt("WRITE_BEHIND_WORKERS", config.WriteBehindWorkers); err != nil {
		return nil, err
	}
	if config.WriteBehindQueueSize, err = getInt("WRITE_BEHIND_QUEUE_SIZE", config.WriteBehindQueueSize); err != nil {
		return nil, err
	}
	if config.WriteBehindMaxAttempts, err = getInt("WRITE_BEHIND_MAX_ATTEMPTS", config.WriteBehindMaxAttempts); err != nil {
		return nil, err
	}
	if config.OTelEnabled, err = getBool("OTEL_ENABLED", config.OTelEnabled); err != nil {
		return nil, err
	}
	if config.OTelExportIntervalMillis, err = getInt("OTEL_EXPORT_INTERVAL_MILLIS", config.OTelExportIntervalMillis); err != nil {
		return nil, err
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.HouseAccountID == 0 {
		return fmt.Errorf("HOUSE_ACCOUNT_ID is required")
	}
	if c.DuelMinStake <= 0 || c.RaffleMinBet <= 0 {
		return fmt.Errorf("minimum stakes must be positive")
	}
	if c.RaffleMaxBetsPerRound <= 0 {
		return fmt.Errorf("RAFFLE_MAX_BETS_PER_ROUND must be positive")
	}
	if c.RaffleTimer <= 0 || c.DuelCancelWindow <= 0 {
		return fmt.Errorf("timer durations must be positive")
	}
	if c.WriteBehindWorkers <= 0 || c.WriteBehindQueueSize <= 0 {
		return fmt.Errorf("write-behind workers and queue size must be positive")
	}

	switch c.Notifier {
	case "log":
	case "telegram":
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required for the telegram notifier")
		}
	case "discord":
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required for the discord notifier")
		}
	default:
		return fmt.Errorf("unknown notifier: %s", c.Notifier)
	}
	return nil
}

// defaults are the production game rules
func defaults() *Config {
	return &Config{
		StartingBalance:          0,
		DuelMinStake:             10,
		DuelCancelWindow:         time.Minute,
		HistoryLimit:             30,
		RaffleMinBet:             10,
		RaffleMaxBetsPerRound:    10,
		RaffleTimer:              40 * time.Second,
		RaffleDrawRetryDelay:     5 * time.Second,
		RatingWindowDays:         30,
		RatingCacheTTL:           time.Minute,
		WriteBehindWorkers:       4,
		WriteBehindQueueSize:     256,
		WriteBehindMaxAttempts:   3,
		Notifier:                 "log",
		OTelExporterType:         "none",
		OTelOTLPEndpoint:         "otel-collector:4317",
		OTelExportIntervalMillis: 10000,
		OTelServiceName:          "dicebank",
		LogLevel:                 "info",
	}
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	config := defaults()
	config.Environment = "test"
	config.HouseAccountID = 1
	config.StartingBalance = 1000
	return config
}
