// README: Best-effort kafka publisher for booking lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"spotly/internal/types"
)

const (
	KeyBookingStarted   = "booking.started"
	KeyBookingCompleted = "booking.completed"
	KeyBookingConfirmed = "booking.confirmed"
	KeyPaymentFailed    = "payment.failed"
)

// Envelope is the wire format consumed by the (external) notification
// services.
type Envelope struct {
	Event      string       `json:"event"`
	Version    int          `json:"version"`
	OccurredAt string       `json:"occurred_at"`
	Data       BookingEvent `json:"data"`
}

type BookingEvent struct {
	BookingID types.ID `json:"booking_id"`
	SpotID    types.ID `json:"spot_id"`
	RenterID  types.ID `json:"renter_id"`
	Status    string   `json:"status"`
	Amount    int64    `json:"amount,omitempty"`
	Currency  string   `json:"currency,omitempty"`
}

// Publisher writes lifecycle events to a kafka topic. A nil Publisher is a
// no-op so call sites never need to branch on whether brokers are
// configured.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, key string, data BookingEvent) error {
	if p == nil || p.writer == nil {
		return nil
	}
	env := Envelope{
		Event:      key,
		Version:    1,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Data:       data,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(string(data.BookingID)),
		Value: b,
	})
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
