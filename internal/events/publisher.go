// Package events delivers document change events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
)

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes change events to a single topic. The writer is created
// lazily on first publish.
type KafkaPublisher struct {
	brokers []string
	topic   string

	mu        sync.Mutex
	writer    messageWriter
	newWriter func(brokers []string, topic string) messageWriter
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		brokers:   brokers,
		topic:     topic,
		newWriter: newKafkaWriter,
	}
}

func newKafkaWriter(brokers []string, topic string) messageWriter {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}
}

// Publish implements domain.EventPublisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}
	return p.writerFor().WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) writerFor() messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		p.writer = p.newWriter(p.brokers, p.topic)
	}
	return p.writer
}

// Close releases the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}

func encodeEvent(event domain.Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	key := "category:" + event.Category
	if event.ActivityID != 0 {
		key = "activity:" + strconv.Itoa(event.ActivityID)
	}

	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "content_type", Value: []byte("application/json")},
		},
	}, nil
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }

// Close performs no action.
func (NoopPublisher) Close() error { return nil }
