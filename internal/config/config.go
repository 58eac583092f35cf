package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	APIURL         string
	SocketURL      string
	LocalAddr      string
	RedisURL       string
	DatabaseDSN    string
	TelegramToken  string
	TelegramChatID int64
	Locale         string
	LocalesDir     string
	DeviceID       string
	ReconnectDelay time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		APIURL:         getEnv("API_URL", "http://localhost:5000/api"),
		SocketURL:      getEnv("SOCKET_URL", "ws://localhost:5000/ws"),
		LocalAddr:      getEnv("LOCAL_ADDR", "127.0.0.1:8080"),
		RedisURL:       getEnv("REDIS_URL", ""),
		DatabaseDSN:    getEnv("DATABASE_DSN", ""),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
		Locale:         getEnv("LOCALE", "en"),
		LocalesDir:     getEnv("LOCALES_DIR", "internal/localization/locales"),
		DeviceID:       getEnv("DEVICE_ID", "default"),
		ReconnectDelay: getEnvAsDuration("RECONNECT_DELAY", ReconnectDelay),
	}
}

// IsProduction reports whether production logging and settings apply.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
