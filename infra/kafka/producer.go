package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers one message to the broker and returns only once the
// broker has acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

const (
	ClientKafkaGo = "kafka-go"
	ClientSarama  = "sarama"
)

type Config struct {
	Brokers []string
	Topic   string
	// Client selects the driver: ClientKafkaGo (default) or ClientSarama.
	Client string
}

var ErrNoBrokers = errors.New("kafka: no brokers configured")

// NewPublisher builds the publisher selected by cfg.Client.
func NewPublisher(cfg Config) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}

	switch cfg.Client {
	case "", ClientKafkaGo:
		return NewProducer(cfg.Brokers, cfg.Topic), nil
	case ClientSarama:
		return NewSaramaProducer(cfg.Brokers, cfg.Topic)
	default:
		return nil, fmt.Errorf("kafka: unknown client %q", cfg.Client)
	}
}

// -------------------- kafka-go --------------------

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Publish(
	ctx context.Context,
	key []byte,
	value []byte,
) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// -------------------- sarama --------------------

type SaramaProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// SaramaConfig is the producer configuration NewSaramaProducer uses.
func SaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func NewSaramaProducer(brokers []string, topic string) (*SaramaProducer, error) {
	producer, err := sarama.NewSyncProducer(brokers, SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka: sarama producer: %w", err)
	}
	return WrapSarama(producer, topic), nil
}

// WrapSarama adapts an existing SyncProducer, such as a sarama mock.
func WrapSarama(producer sarama.SyncProducer, topic string) *SaramaProducer {
	return &SaramaProducer{producer: producer, topic: topic}
}

// Publish ignores ctx beyond an early check: SyncProducer blocks until the
// broker answers or its own retries run out.
func (p *SaramaProducer) Publish(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *SaramaProducer) Close() error {
	return p.producer.Close()
}
