package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultSymbol, cfg.Symbol)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, defaultGRPCAddr, cfg.GRPC.Addr)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, defaultBroadcastInterval, cfg.Kafka.BroadcastInterval)
	assert.True(t, cfg.Load.Enabled)
	assert.Equal(t, uint64(defaultLoadMaxPrice), cfg.Load.MaxPrice)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENGINE_SYMBOL", "ETH-USD")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GRPC_ADDR", "off")
	t.Setenv("OUTBOX_DIR", "/tmp/ob")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("KAFKA_CLIENT", "sarama")
	t.Setenv("BROADCAST_INTERVAL", "2s")
	t.Setenv("LOADGEN_ENABLED", "false")
	t.Setenv("LOADGEN_SEED", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ETH-USD", cfg.Symbol)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Empty(t, cfg.GRPC.Addr)
	assert.Equal(t, "/tmp/ob", cfg.Outbox.Dir)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "sarama", cfg.Kafka.Client)
	assert.Equal(t, 2*time.Second, cfg.Kafka.BroadcastInterval)
	assert.False(t, cfg.Load.Enabled)
	assert.Equal(t, uint64(42), cfg.Load.Seed)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"LOG_LEVEL":          "loud",
		"BROADCAST_INTERVAL": "soon",
		"LOADGEN_BIDS":       "many",
		"LOADGEN_MAX_PRICE":  "1",
		"LOADGEN_ENABLED":    "maybe",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
