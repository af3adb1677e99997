package domain

import (
	"context"
	"time"

	"ride-metrics/internal/general/contracts"
)

// Delivery is one received message together with its transport correlation
// fields. Exactly one of ReceiptHandle / DeliveryTag is meaningful,
// depending on the adapter that produced it.
type Delivery struct {
	Body          []byte
	TransportID   string // transport-assigned message id, when available
	ReceiptHandle string // managed-queue ack handle
	DeliveryTag   uint64 // broker ack handle
}

// SendResult reports a successful send.
type SendResult struct {
	MessageID string
	QueueType string
}

// QueueAdapter is the uniform capability set over the two queue backends.
// Both implementations declare their underlying queue idempotently before
// first use.
type QueueAdapter interface {
	Send(ctx context.Context, msg contracts.QueueMessage) (SendResult, error)
	Receive(ctx context.Context, max int) ([]Delivery, error)
	Ack(ctx context.Context, d Delivery) error
	Nack(ctx context.Context, d Delivery, requeue bool) error
	Close() error
}

// MetricStore persists one record per processed message and lists the full
// stored set for aggregation.
type MetricStore interface {
	Put(ctx context.Context, rec contracts.MetricRecord) error
	GetAll(ctx context.Context) ([]contracts.MetricRecord, error)
}

// ProcessSimulator draws one simulated processing outcome. It incurs the
// simulated delay before returning, and reports the elapsed duration.
// Injectable so tests supply deterministic outcomes.
type ProcessSimulator func(ctx context.Context) (success bool, elapsed time.Duration)
