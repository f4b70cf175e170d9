package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultTimezone = "Asia/Shanghai"
	defaultHTTPAddr = ":8080"
	defaultBoltPath = "data/homework.db"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string
	HomeworkChatID  int64
	StorageChatID   int64
	AdminSecret     string // empty disables the admin API
	AdminTelegramID int64  // zero disables the admin bot
	Subjects        []string
	Timezone        string
	Location        *time.Location
	HTTPAddr        string
	StoreBackend    string
	BoltPath        string
	RedisURL        string
	DatabaseURL     string
	CronSpecDigest  string // empty disables the daily digest
	LogLevel        string
	Environment     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}

	if cfg.HomeworkChatID, err = requireInt64("HOMEWORK_CHAT_ID"); err != nil {
		return nil, err
	}

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "telegram"
	}
	switch cfg.StoreBackend {
	case "telegram":
		if cfg.StorageChatID, err = requireInt64("STORAGE_CHAT_ID"); err != nil {
			return nil, err
		}
	case "bolt":
		cfg.BoltPath = os.Getenv("BOLT_PATH")
		if cfg.BoltPath == "" {
			cfg.BoltPath = defaultBoltPath
		}
	case "redis":
		cfg.RedisURL = os.Getenv("REDIS_URL")
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is not set")
		}
	case "postgres":
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	cfg.AdminSecret = os.Getenv("ADMIN_SECRET")

	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	cfg.Subjects = ParseSubjects(os.Getenv("SUBJECTS"))

	cfg.Timezone = os.Getenv("TIMEZONE")
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}
	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}

	cfg.CronSpecDigest = os.Getenv("CRON_SPEC_DAILY_DIGEST")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

// ParseSubjects splits a comma separated list, dropping blanks and duplicates.
func ParseSubjects(raw string) []string {
	seen := map[string]bool{}
	var subjects []string
	for _, part := range strings.Split(raw, ",") {
		s := strings.TrimSpace(part)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		subjects = append(subjects, s)
	}
	return subjects
}

func requireInt64(key string) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("%s is not set", key)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
