package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/config"
	"github.com/jmehdipour/saga-coordinator/internal/metrics"
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/util"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer relays accepted transaction events to the events topic.
// Messages are keyed by globalTxId so one saga stays on one partition.
type Producer struct {
	w            messageWriter
	writeTimeout time.Duration
	now          func() time.Time
}

func NewProducer(c config.KafkaConfig) *Producer {
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 3 * time.Second
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: wt,
	}
	return &Producer{w: w, writeTimeout: wt, now: time.Now}
}

// Send wraps the event in an Envelope and writes it synchronously.
func (p *Producer) Send(ctx context.Context, e model.TxEvent) error {
	env := model.Envelope{
		ID:        util.New(),
		RelayedAt: p.now().UTC(),
		Event:     e,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.GlobalTxID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type.String())},
		},
	})
	if err != nil {
		metrics.RelayTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("write event %s: %w", e.LocalTxID, err)
	}
	metrics.RelayTotal.WithLabelValues("ok").Inc()
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

// DecodeEnvelope parses a relayed message value.
func DecodeEnvelope(m Message) (model.Envelope, error) {
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return model.Envelope{}, err
	}
	if env.ID == "" || env.Event.GlobalTxID == "" {
		return model.Envelope{}, fmt.Errorf("envelope missing id or globalTxId")
	}
	return env, nil
}
