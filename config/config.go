/*
Package config centralizes environment-driven configuration.

PURPOSE:
  One place to read every knob. Values come from the environment, with
  an optional .env file loaded first for local development. Every value
  has a sensible default so the binary runs with zero configuration.

SEE ALSO:
  - cmd/server/main.go: flags override environment values
*/
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds every runtime setting for the service.
type Config struct {
	HTTPAddr     string
	DatabasePath string

	CountryPrefix string
	MinAmount     decimal.Decimal
	MaxAmount     decimal.Decimal

	ReferencePrefix  string
	ReferenceRetries int

	MerchantsFile    string
	NotifyWebhookURL string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present; missing is fine.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		zap.L().Debug("loaded .env file")
	}

	return Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/ledger.db"),

		CountryPrefix: getEnv("COUNTRY_PREFIX", "+221"),
		MinAmount:     getEnvDecimal("MIN_AMOUNT", "100"),
		MaxAmount:     getEnvDecimal("MAX_AMOUNT", "1000000"),

		ReferencePrefix:  getEnv("REFERENCE_PREFIX", "TRF"),
		ReferenceRetries: getEnvInt("REFERENCE_RETRIES", 5),

		MerchantsFile:    getEnv("MERCHANTS_FILE", "./merchants.yml"),
		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		zap.L().Warn("invalid integer in environment, using default",
			zap.String("key", key), zap.String("value", v))
		return fallback
	}
	return n
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		zap.L().Warn("invalid decimal in environment, using default",
			zap.String("key", key), zap.String("value", v))
		return decimal.RequireFromString(fallback)
	}
	return d
}
