package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// Delivery channels.
const (
	ChannelFCM      = "fcm"
	ChannelTelegram = "telegram"
	ChannelLog      = "log"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	StoreDriver string
	DatabaseURL string
	LogLevel    string
	Environment string

	HTTPAddr           string
	AdminAPIKey        string
	CORSAllowedOrigins []string

	CycleInterval      time.Duration
	ReminderInterval   time.Duration
	SnoozeShort        time.Duration
	SnoozeLong         time.Duration
	DeliveryTimeout    time.Duration
	CycleConcurrency   int
	CronSpecSeed       string
	SeedOnStartup      bool
	HydrationMLPerSlot int

	DeliveryChannel         string
	FCMProjectID            string
	FirebaseCredentialsPath string
	TelegramToken           string
	AdminTelegramID         int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JobLockTTL    time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.StoreDriver = strings.ToLower(getenv("STORE_DRIVER"))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreDriverPostgres
	}
	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}

	cfg.DatabaseURL = getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StoreDriver == StoreDriverPostgres {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.HTTPAddr = valueOr(getenv("HTTP_ADDR"), ":8080")
	cfg.AdminAPIKey = getenv("ADMIN_API_KEY")
	cfg.CORSAllowedOrigins = splitList(valueOr(getenv("CORS_ALLOWED_ORIGINS"), "*"))

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"CYCLE_INTERVAL", 5 * time.Minute, &cfg.CycleInterval},
		{"REMINDER_INTERVAL", 15 * time.Minute, &cfg.ReminderInterval},
		{"SNOOZE_SHORT", 15 * time.Minute, &cfg.SnoozeShort},
		{"SNOOZE_LONG", 30 * time.Minute, &cfg.SnoozeLong},
		{"DELIVERY_TIMEOUT", 5 * time.Second, &cfg.DeliveryTimeout},
		{"JOB_LOCK_TTL", 4 * time.Minute, &cfg.JobLockTTL},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(getenv(d.key), d.def); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if cfg.CycleConcurrency, err = parseInt(getenv("CYCLE_CONCURRENCY"), 8); err != nil {
		return nil, fmt.Errorf("invalid CYCLE_CONCURRENCY: %w", err)
	}
	if cfg.HydrationMLPerSlot, err = parseInt(getenv("HYDRATION_ML_PER_SLOT"), 250); err != nil {
		return nil, fmt.Errorf("invalid HYDRATION_ML_PER_SLOT: %w", err)
	}

	cfg.CronSpecSeed = valueOr(getenv("CRON_SPEC_SEED"), "1 0 * * *") // Default: 00:01 UTC daily

	cfg.SeedOnStartup = true
	if v := getenv("SEED_ON_STARTUP"); v != "" {
		if cfg.SeedOnStartup, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid SEED_ON_STARTUP: %w", err)
		}
	}

	cfg.DeliveryChannel = strings.ToLower(valueOr(getenv("DELIVERY_CHANNEL"), ChannelFCM))
	switch cfg.DeliveryChannel {
	case ChannelFCM:
		cfg.FCMProjectID = getenv("FCM_PROJECT_ID")
		if cfg.FCMProjectID == "" {
			return nil, fmt.Errorf("FCM_PROJECT_ID is not set")
		}
		cfg.FirebaseCredentialsPath = valueOr(getenv("FIREBASE_CREDENTIALS_PATH"), "./firebase_service_account.json")
	case ChannelTelegram:
		cfg.TelegramToken = getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
		}
		if adminIDStr := getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
			cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
			}
		}
	case ChannelLog:
	default:
		return nil, fmt.Errorf("invalid DELIVERY_CHANNEL %q", cfg.DeliveryChannel)
	}

	cfg.RedisAddr = getenv("REDIS_ADDR")
	cfg.RedisPassword = getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = parseInt(getenv("REDIS_DB"), 0); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	if cfg.ReminderInterval <= 0 || cfg.CycleInterval <= 0 {
		return nil, fmt.Errorf("CYCLE_INTERVAL and REMINDER_INTERVAL must be positive")
	}

	return cfg, nil
}

// CronSpecCycle is the robfig/cron spec for the reconciliation cycle.
func (c *AppConfig) CronSpecCycle() string {
	return "@every " + c.CycleInterval.String()
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDuration(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}

func parseInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
