package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config represents the engine configuration.
// All settings load from .env with sane defaults.
type Config struct {
	Monitor   MonitorConfig
	Store     StoreConfig
	Execution ExecutionConfig
	Feed      FeedConfig
	Notify    NotifyConfig
	API       APIConfig
	Telegram  TelegramConfig
	Logging   LoggingConfig
}

type MonitorConfig struct {
	Interval         time.Duration
	PassTimeout      time.Duration
	FetchTimeout     time.Duration
	FetchConcurrency int
	DustThreshold    decimal.Decimal
	RatchetMode      string // off, breakeven
	RatchetBufferPct decimal.Decimal
}

type StoreConfig struct {
	IntentsPath string
	JournalPath string
}

type ExecutionConfig struct {
	Mode           string // paper, live
	MaxAttempts    int
	MaxSlippageBps int
}

type FeedConfig struct {
	DexScreenerBaseURL string
	Timeout            time.Duration
}

type NotifyConfig struct {
	BufferSize int
	Cooldown   time.Duration
}

type APIConfig struct {
	Enabled        bool
	Port           string
	AllowedOrigins []string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
}

type LoggingConfig struct {
	Level         string
	Format        string
	FileEnabled   bool
	FilePath      string
	RotationSize  int // MB
	RetentionDays int
}

// Load loads configuration from .env and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Missing .env is fine, plain environment variables still apply
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	config := &Config{
		Monitor: MonitorConfig{
			Interval:         time.Duration(getEnvInt("MONITOR_INTERVAL_SECONDS", 30)) * time.Second,
			PassTimeout:      time.Duration(getEnvInt("MONITOR_PASS_TIMEOUT_SECONDS", 25)) * time.Second,
			FetchTimeout:     time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 8)) * time.Second,
			FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 8),
			DustThreshold:    getEnvDecimal("DUST_THRESHOLD", "0.001"),
			RatchetMode:      getEnv("STOP_RATCHET_MODE", "off"),
			RatchetBufferPct: getEnvDecimal("STOP_RATCHET_BUFFER_PCT", "0"),
		},
		Store: StoreConfig{
			IntentsPath: getEnv("INTENTS_PATH", "data/exit_intents.json"),
			JournalPath: getEnv("JOURNAL_PATH", "data/executions.db"),
		},
		Execution: ExecutionConfig{
			Mode:           getEnv("EXECUTION_MODE", "paper"),
			MaxAttempts:    getEnvInt("MAX_EXECUTION_ATTEMPTS", 3),
			MaxSlippageBps: getEnvInt("MAX_SLIPPAGE_BPS", 100),
		},
		Feed: FeedConfig{
			DexScreenerBaseURL: getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"),
			Timeout:            time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 8)) * time.Second,
		},
		Notify: NotifyConfig{
			BufferSize: getEnvInt("NOTIFY_BUFFER_SIZE", 64),
			Cooldown:   time.Duration(getEnvInt("NOTIFY_COOLDOWN_SECONDS", 60)) * time.Second,
		},
		API: APIConfig{
			Enabled:        getEnvBool("API_ENABLED", true),
			Port:           getEnv("API_PORT", "8099"),
			AllowedOrigins: getEnvList("API_ALLOWED_ORIGINS", "*"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
		Logging: LoggingConfig{
			Level:         getEnv("LOG_LEVEL", "info"),
			Format:        getEnv("LOG_FORMAT", "pretty"),
			FileEnabled:   getEnvBool("LOG_FILE_ENABLED", false),
			FilePath:      getEnv("LOG_FILE_PATH", "logs"),
			RotationSize:  getEnvInt("LOG_ROTATION_SIZE_MB", 100),
			RetentionDays: getEnvInt("LOG_RETENTION_DAYS", 30),
		},
	}

	return config, nil
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt gets an integer environment variable with fallback
func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		fmt.Printf("Warning: invalid %s=%q, using %d\n", key, value, fallback)
		return fallback
	}
	return n
}

// getEnvBool gets a boolean environment variable with fallback
func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		fmt.Printf("Warning: invalid %s=%q, using %t\n", key, value, fallback)
		return fallback
	}
	return b
}

// getEnvList gets a comma-separated environment variable with fallback
func getEnvList(key, fallback string) []string {
	value := os.Getenv(key)
	if value == "" {
		value = fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnvDecimal gets a decimal environment variable with fallback
func getEnvDecimal(key, fallback string) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return decimal.RequireFromString(fallback)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		fmt.Printf("Warning: invalid %s=%q, using %s\n", key, value, fallback)
		return decimal.RequireFromString(fallback)
	}
	return d
}
