package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI     string
	TelegramToken   string
	DefaultTimezone string
	TickInterval    time.Duration
	LogLevel        string
	NoteMaxLength   int
}

func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	return &Config{
		DatabaseURI:     os.Getenv("DATABASE_URI"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		DefaultTimezone: getEnvOrDefault("DEFAULT_TIMEZONE", "UTC"),
		TickInterval:    time.Duration(getEnvInt("TICK_INTERVAL_SECONDS", 60)) * time.Second,
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		NoteMaxLength:   getEnvInt("NOTE_MAX_LENGTH", 500),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}
