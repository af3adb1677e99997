package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/domain"

	"github.com/google/uuid"
)

// Producer validates inbound ride requests, stamps them with identity and
// send time, and routes them to the selected queue adapter. Each submission
// is a stateless unit of work.
type Producer struct {
	managed domain.QueueAdapter
	broker  domain.QueueAdapter
	logger  *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewProducer wires a producer over the two queue adapters.
func NewProducer(managed, broker domain.QueueAdapter, log *logger.Logger) *Producer {
	return &Producer{
		managed: managed,
		broker:  broker,
		logger:  log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Submit routes one ride request to the queue named by selector.
// The message is never considered sent unless the adapter accepted it.
func (p *Producer) Submit(ctx context.Context, req contracts.RideRequest, selector string) (domain.SubmissionResult, error) {
	adapter, queueType, err := p.route(selector)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	if err := validateRequest(req); err != nil {
		return domain.SubmissionResult{}, err
	}

	msg := contracts.QueueMessage{
		MessageID:      p.newID(),
		TimestampSent:  contracts.FormatTimestamp(p.now()),
		QueueType:      queueType,
		PassengerName:  strings.TrimSpace(req.PassengerName),
		CurrentAddress: strings.TrimSpace(req.CurrentAddress),
		Destination:    strings.TrimSpace(req.Destination),
		Phone:          orDefault(req.Phone),
	}

	ctx = p.logger.WithMessageID(ctx, msg.MessageID)

	if _, err := adapter.Send(ctx, msg); err != nil {
		p.logger.Error(ctx, "send_failed", "Failed to send message to queue", err,
			map[string]any{"queue_type": queueType})
		return domain.SubmissionResult{}, fmt.Errorf("%w: %s", domain.ErrDelivery, err)
	}

	p.logger.Info(ctx, "ride_queued", "Ride request queued",
		map[string]any{"queue_type": queueType, "passenger_name": msg.PassengerName})

	return domain.SubmissionResult{
		MessageID:     msg.MessageID,
		Timestamp:     msg.TimestampSent,
		QueueType:     queueType,
		Status:        contracts.StatusQueued,
		PassengerName: msg.PassengerName,
	}, nil
}

// route maps a selector to its adapter; anything outside the two known
// values is rejected before validation runs.
func (p *Producer) route(selector string) (domain.QueueAdapter, string, error) {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case contracts.QueueTypeManaged:
		return p.managed, contracts.QueueTypeManaged, nil
	case contracts.QueueTypeBroker:
		return p.broker, contracts.QueueTypeBroker, nil
	default:
		return nil, "", domain.ErrInvalidSelector
	}
}

// validateRequest checks the three required fields in a fixed order; the
// first missing one names the error.
func validateRequest(req contracts.RideRequest) error {
	checks := []struct {
		field string
		value string
	}{
		{"passenger_name", req.PassengerName},
		{"current_address", req.CurrentAddress},
		{"destination", req.Destination},
	}

	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			return &domain.ValidationError{Field: c.field}
		}
	}
	return nil
}

func orDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
