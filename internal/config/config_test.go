package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresBackendBaseURL(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_BASE_URL")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://localhost:5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.Port)
	assert.Equal(t, "/api/v0", cfg.API.BasePath)
	assert.Equal(t, 2*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Sync.StatusInterval)
	assert.Equal(t, 10, cfg.Sync.FeedLimit)
	assert.Equal(t, 15*time.Second, cfg.Telegram.Cooldown)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.HistoryEnabled())
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://backend:5000")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("API_PORT", ":9191")
	t.Setenv("KAFKA_BROKER", "broker:9092")
	t.Setenv("KAFKA_TOPIC", "cleansight_alerts")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.PollInterval)
	assert.Equal(t, ":9191", cfg.API.Port)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "cleansight-dashboard", cfg.Kafka.GroupID)
}

func TestKafkaBrokerNeedsTopic(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://localhost:5000")
	t.Setenv("KAFKA_BROKER", "broker:9092")
	t.Setenv("KAFKA_TOPIC", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_TOPIC")
}

func TestTelegramTokenNeedsChatID(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://localhost:5000")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")
}
