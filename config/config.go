// Package config loads application settings from the environment, with a
// .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/models"
)

// AppConfig is everything the service binaries need to run.
type AppConfig struct {
	Signal models.SignalConfig

	TwelveDataAPIKey string
	FREDAPIKey       string
	CalendarFeedURL  string

	TelegramToken  string
	TelegramChatID int64

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MetricsAddr  string
	EvalInterval time.Duration
	HistorySize  int
}

// Load reads the environment into an AppConfig. A missing .env file is
// fine; real environment variables win either way.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	apiKey := os.Getenv("TWELVE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("TWELVE_API_KEY not set in environment")
	}

	sig := models.DefaultSignalConfig()
	sig.Pair = getEnv("PAIR", sig.Pair)
	sig.MinConfluenceScore = getEnvFloat("MIN_CONFLUENCE_SCORE", sig.MinConfluenceScore)
	sig.MinRiskReward = getEnvFloat("MIN_RISK_REWARD", sig.MinRiskReward)
	sig.MaxDailySignals = getEnvInt("MAX_DAILY_SIGNALS", sig.MaxDailySignals)
	sig.RequireMacroAlignment = getEnvBool("REQUIRE_MACRO_ALIGNMENT", sig.RequireMacroAlignment)
	sig.MacroWeight = getEnvFloat("MACRO_WEIGHT", sig.MacroWeight)
	sig.AccountSize = getEnvFloat("ACCOUNT_SIZE", sig.AccountSize)
	sig.RiskPerTrade = getEnvFloat("RISK_PER_TRADE", sig.RiskPerTrade)
	sig.EnableH4 = getEnvBool("ENABLE_H4", sig.EnableH4)
	sig.EnableH1 = getEnvBool("ENABLE_H1", sig.EnableH1)
	sig.EnableM15 = getEnvBool("ENABLE_M15", sig.EnableM15)

	chatID, err := strconv.ParseInt(getEnv("TELEGRAM_CHAT_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}

	return &AppConfig{
		Signal:           sig,
		TwelveDataAPIKey: apiKey,
		FREDAPIKey:       os.Getenv("FRED_API_KEY"),
		CalendarFeedURL:  os.Getenv("CALENDAR_FEED_URL"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   chatID,
		DBHost:           os.Getenv("DB_HOST"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           os.Getenv("DB_NAME"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		MetricsAddr:      getEnv("METRICS_ADDR", ":9090"),
		EvalInterval:     getEnvDuration("EVAL_INTERVAL", 15*time.Minute),
		HistorySize:      getEnvInt("HISTORY_SIZE", 100),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer env value, using default")
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid float env value, using default")
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid boolean env value, using default")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration env value, using default")
	}
	return fallback
}
