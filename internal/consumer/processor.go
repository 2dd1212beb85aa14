// Package consumer reads tracker change events back from Kafka.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded change events.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a change event together with its Kafka coordinates.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Event     domain.Event
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithFetchBackOff overrides the wait policy applied after failed fetches.
func WithFetchBackOff(b backoff.BackOff) Option {
	return func(p *Processor) {
		if b != nil {
			p.fetchBackOff = b
		}
	}
}

// Processor pulls messages from Kafka, decodes them and dispatches to a Handler.
type Processor struct {
	reader       Reader
	handler      Handler
	logger       *log.Logger
	fetchBackOff backoff.BackOff
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags),
	}
	fetchBackOff := backoff.NewExponentialBackOff()
	fetchBackOff.InitialInterval = 200 * time.Millisecond
	fetchBackOff.MaxInterval = 10 * time.Second
	p.fetchBackOff = fetchBackOff
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks processing messages until the context is cancelled. A message is
// committed only after the handler accepts it; undecodable messages are
// committed and skipped. Consecutive fetch errors wait progressively longer.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			wait := p.fetchBackOff.NextBackOff()
			p.logger.Printf("fetch error, retrying in %s: %v", wait, err)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}
		p.fetchBackOff.Reset()

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			recordDecodeError(msg.Topic)
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after decode failure: %v", commitErr)
			}
			continue
		}

		if handleErr := p.handler.Handle(ctx, event); handleErr != nil {
			p.logger.Printf("handler error (event_type=%s, key=%s): %v", event.Event.Type, event.Key, handleErr)
			recordHandlerError(event)
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Printf("commit error: %v", commitErr)
		} else {
			recordProcessed(event)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return Message{}, fmt.Errorf("decode payload: %w", err)
	}

	if header, ok := headerValue(msg, "event_type"); ok && event.Type == "" {
		event.Type = string(header)
	}
	if event.Type == "" {
		return Message{}, errors.New("missing event type")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = msg.Time
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       string(msg.Key),
		Event:     event,
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
