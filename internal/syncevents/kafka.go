package syncevents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const emitTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer messageWriter
	topic  string
	log    zerolog.Logger
}

// NewKafkaProducer creates a producer writing JSON events to topic, keyed by
// device ID. It returns nil when brokers or topic are empty. Call Close when
// shutting down.
func NewKafkaProducer(brokers []string, topic string, log zerolog.Logger) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic, log: log}
}

// Emit serializes the event as JSON and writes it to the topic.
func (p *KafkaProducer) Emit(ctx context.Context, event Event) error {
	if p == nil || p.writer == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.DeviceID),
		Value: payload,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("topic", p.topic).Str("event_type", event.Type).Msg("sync event emit failed")
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// FromBrokers returns a KafkaProducer when brokers are configured and Nop otherwise.
func FromBrokers(brokers []string, topic string, log zerolog.Logger) Producer {
	if p := NewKafkaProducer(brokers, topic, log); p != nil {
		return p
	}
	return Nop{}
}
