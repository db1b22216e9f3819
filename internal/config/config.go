package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultSymbol            = "TEST"
	defaultLogLevel          = "info"
	defaultGRPCAddr          = ":50051"
	defaultKafkaTopic        = "tickbook.events"
	defaultKafkaClient       = "kafka-go"
	defaultBroadcastInterval = 250 * time.Millisecond
	defaultOutboxDir         = "./outbox"

	defaultLoadBids     = 999
	defaultLoadRounds   = 9
	defaultLoadPerRound = 99
	defaultLoadMaxPrice = 5000
	defaultLoadMaxQty   = 500
)

// Config keeps the runtime configuration for the engine.
type Config struct {
	Symbol   string
	LogLevel logrus.Level
	GRPC     GRPCConfig
	Outbox   OutboxConfig
	Kafka    KafkaConfig
	Load     LoadConfig
}

// GRPCConfig holds the market data listener. An empty Addr disables it.
type GRPCConfig struct {
	Addr string
}

// OutboxConfig locates the pebble event outbox. An empty Dir disables
// event capture.
type OutboxConfig struct {
	Dir string
}

// KafkaConfig configures broadcasting. No brokers means no broadcaster.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Client            string
	BroadcastInterval time.Duration
}

// Enabled reports whether brokers were configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// LoadConfig drives the synthetic order flow.
type LoadConfig struct {
	Enabled  bool
	Seed     uint64
	Bids     int
	Rounds   int
	PerRound int
	MaxPrice uint64
	MaxQty   uint64
}

// Load builds Config from environment variables.
func Load() (*Config, error) {
	level, err := logrus.ParseLevel(getString("LOG_LEVEL", defaultLogLevel))
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	interval, err := getDuration("BROADCAST_INTERVAL", defaultBroadcastInterval)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("BROADCAST_INTERVAL must be positive, got %s", interval)
	}

	load, err := loadLoad()
	if err != nil {
		return nil, err
	}

	return &Config{
		Symbol:   getString("ENGINE_SYMBOL", defaultSymbol),
		LogLevel: level,
		GRPC:     GRPCConfig{Addr: getOptional("GRPC_ADDR", defaultGRPCAddr)},
		Outbox:   OutboxConfig{Dir: getOptional("OUTBOX_DIR", defaultOutboxDir)},
		Kafka: KafkaConfig{
			Brokers:           getList("KAFKA_BROKERS"),
			Topic:             getString("KAFKA_TOPIC", defaultKafkaTopic),
			Client:            getString("KAFKA_CLIENT", defaultKafkaClient),
			BroadcastInterval: interval,
		},
		Load: load,
	}, nil
}

func loadLoad() (LoadConfig, error) {
	enabled, err := getBool("LOADGEN_ENABLED", true)
	if err != nil {
		return LoadConfig{}, err
	}
	seed, err := getUint("LOADGEN_SEED", 0)
	if err != nil {
		return LoadConfig{}, err
	}
	bids, err := getInt("LOADGEN_BIDS", defaultLoadBids)
	if err != nil {
		return LoadConfig{}, err
	}
	rounds, err := getInt("LOADGEN_ROUNDS", defaultLoadRounds)
	if err != nil {
		return LoadConfig{}, err
	}
	perRound, err := getInt("LOADGEN_PER_ROUND", defaultLoadPerRound)
	if err != nil {
		return LoadConfig{}, err
	}
	maxPrice, err := getUint("LOADGEN_MAX_PRICE", defaultLoadMaxPrice)
	if err != nil {
		return LoadConfig{}, err
	}
	maxQty, err := getUint("LOADGEN_MAX_QTY", defaultLoadMaxQty)
	if err != nil {
		return LoadConfig{}, err
	}
	if maxPrice < 2 || maxQty < 1 {
		return LoadConfig{}, fmt.Errorf("LOADGEN_MAX_PRICE must be >= 2 and LOADGEN_MAX_QTY >= 1")
	}

	return LoadConfig{
		Enabled:  enabled,
		Seed:     seed,
		Bids:     bids,
		Rounds:   rounds,
		PerRound: perRound,
		MaxPrice: maxPrice,
		MaxQty:   maxQty,
	}, nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

// getOptional is getString, except that an explicit "off" or "-" yields
// the empty string.
func getOptional(key, fallback string) string {
	value := getString(key, fallback)
	if value == "off" || value == "-" {
		return ""
	}
	return value
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getUint(key string, fallback uint64) (uint64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to uint: %w", key, value, err)
	}
	return parsed, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("convert %s value %q to bool: %w", key, value, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to duration: %w", key, value, err)
	}
	return parsed, nil
}
