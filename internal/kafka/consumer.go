package kafka

import (
	"context"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/config"
	"github.com/segmentio/kafka-go"
)

type Message = kafka.Message

type Config struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int           // default 1KB
	MaxBytes       int           // default 10MB
	CommitInterval time.Duration // default 1s; 0 in config means default
	MaxWait        time.Duration // default 50ms
}

// ReaderConfigFrom builds the consumer config of one worker group on the relay topic.
// Each worker kind consumes the whole topic under its own group id, "<group_id>-<group>".
func ReaderConfigFrom(c config.KafkaConfig, group string) Config {
	prefix := c.GroupID
	if prefix == "" {
		prefix = "alpha"
	}
	return Config{
		Brokers:        c.Brokers,
		Topic:          c.Topic,
		GroupID:        prefix + "-" + group,
		MinBytes:       c.MinBytes,
		MaxBytes:       c.MaxBytes,
		CommitInterval: time.Duration(c.CommitInterval) * time.Millisecond,
	}
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func (c Config) readerConfig() kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MinBytes:       orDefault(c.MinBytes, 1<<10),
		MaxBytes:       orDefault(c.MaxBytes, 10<<20),
		CommitInterval: orDefault(c.CommitInterval, time.Second),
		MaxWait:        orDefault(c.MaxWait, 50*time.Millisecond),
	}
}

// Fetcher is what workers need from a consumer. Commit acknowledges every message up to
// and including the given ones on their partitions.
type Fetcher interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msgs ...Message) error
}

// Consumer reads the relay topic with explicit commits.
type Consumer struct {
	r *kafka.Reader
}

var _ Fetcher = (*Consumer)(nil)

func NewConsumerFromConfig(c Config) *Consumer {
	return &Consumer{r: kafka.NewReader(c.readerConfig())}
}

func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.r.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, msgs ...Message) error {
	return c.r.CommitMessages(ctx, msgs...)
}

func (c *Consumer) Close() error { return c.r.Close() }
