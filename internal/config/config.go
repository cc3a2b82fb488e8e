package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Backend struct {
		BaseURL        string
		WebSocketURL   string
		RequestTimeout time.Duration
	}
	Sync struct {
		PollInterval   time.Duration
		StatusInterval time.Duration
		FeedLimit      int
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	History struct {
		DSN string
	}
	Telegram struct {
		BotToken string
		ChatID   int64
		Cooldown time.Duration
	}
	Notify struct {
		QueueSize  int
		MaxWorkers int
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Backend settings
	cfg.Backend.BaseURL = os.Getenv("BACKEND_BASE_URL")
	cfg.Backend.WebSocketURL = os.Getenv("BACKEND_WS_URL")
	cfg.Backend.RequestTimeout = durationEnv("BACKEND_TIMEOUT", 10*time.Second)

	// Sync settings
	cfg.Sync.PollInterval = durationEnv("POLL_INTERVAL", 2*time.Second)
	cfg.Sync.StatusInterval = durationEnv("STATUS_POLL_INTERVAL", 5*time.Second)
	cfg.Sync.FeedLimit = intEnv("DETECTION_FEED_LIMIT", 10)

	// Kafka push source (optional)
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// History recorder (optional)
	cfg.History.DSN = os.Getenv("HISTORY_DB_DSN")

	// Telegram notifier (optional)
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	cfg.Telegram.Cooldown = durationEnv("ALERT_COOLDOWN", 15*time.Second)

	// Notifier worker settings
	cfg.Notify.QueueSize = intEnv("NOTIFY_QUEUE_SIZE", 100)
	cfg.Notify.MaxWorkers = intEnv("NOTIFY_MAX_WORKERS", 2)

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Logging
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.Backend.BaseURL == "" {
		missing = append(missing, "BACKEND_BASE_URL")
	}
	if cfg.Kafka.Broker != "" && cfg.Kafka.Topic == "" {
		missing = append(missing, "KAFKA_TOPIC")
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID == 0 {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "cleansight-dashboard"
	}

	return cfg, nil
}

// KafkaEnabled reports whether the Kafka push source is configured.
func (c Config) KafkaEnabled() bool {
	return c.Kafka.Broker != ""
}

// HistoryEnabled reports whether the Postgres history recorder is configured.
func (c Config) HistoryEnabled() bool {
	return c.History.DSN != ""
}

// TelegramEnabled reports whether the Telegram notifier is configured.
func (c Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}

func durationEnv(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

func intEnv(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}
