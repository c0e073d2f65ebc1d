// Package events publishes checkout lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmitrijs2005/bkashgate/internal/logging"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

const (
	EventPaymentSucceeded = "bkash.payment.succeeded"
	EventVersion          = "1"
)

// Each event is flushed on its own; WriteMessages runs inside request handlers.
const (
	writerBatchSize    = 1
	writerBatchTimeout = 10 * time.Millisecond
)

// Envelope is the wire shape of every published event.
type Envelope struct {
	EventType    string    `json:"eventType"`
	EventVersion string    `json:"eventVersion"`
	OccurredAt   time.Time `json:"occurredAt"`
	AggregateID  string    `json:"aggregateId"`
	Data         any       `json:"data"`
}

// PaymentSucceeded is the Data of an EventPaymentSucceeded envelope.
type PaymentSucceeded struct {
	Payment  *models.PaymentRecord `json:"payment"`
	Response map[string]any        `json:"response"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes events to one topic, keyed by payment id so that events of
// a payment keep their order.
type Publisher struct {
	w      messageWriter
	topic  string
	logger logging.Logger
	now    func() time.Time
}

// NewPublisher returns a Publisher over a kafka.Writer for brokers.
func NewPublisher(brokers []string, topic string, logger logging.Logger) *Publisher {
	return newPublisher(newWriter(brokers), topic, logger)
}

func newWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchSize:              writerBatchSize,
		BatchTimeout:           writerBatchTimeout,
	}
}

func newPublisher(w messageWriter, topic string, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Publisher{
		w:      w,
		topic:  topic,
		logger: logger.With("module", "events"),
		now:    time.Now,
	}
}

// PaymentSucceeded publishes the executed payment with the raw upstream reply.
func (p *Publisher) PaymentSucceeded(ctx context.Context, payment *models.PaymentRecord, response map[string]any) error {
	return p.Publish(ctx, payment.PaymentID, Envelope{
		EventType:    EventPaymentSucceeded,
		EventVersion: EventVersion,
		AggregateID:  payment.PaymentID,
		Data:         PaymentSucceeded{Payment: payment, Response: response},
	})
}

// Publish writes a single envelope. OccurredAt is stamped here.
func (p *Publisher) Publish(ctx context.Context, key string, evt Envelope) error {
	evt.OccurredAt = p.now().UTC()
	val, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.EventType, err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: val,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", evt.EventType, err)
	}

	p.logger.Debug(ctx, "event published", "type", evt.EventType, "key", key, "topic", p.topic)
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }
