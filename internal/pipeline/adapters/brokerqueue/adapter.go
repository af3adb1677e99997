package brokerqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ride-metrics/internal/general/config"
	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/general/rabbitmq"
	"ride-metrics/internal/pipeline/domain"
)

// Adapter routes messages through the self-managed broker. Delivery is
// pull-style: Receive opens a drain session and collects a bounded batch;
// the session stays open so the acks that follow can reference its
// delivery tags.
type Adapter struct {
	client     *rabbitmq.Client
	inactivity time.Duration
	logger     *logger.Logger

	mu      sync.Mutex
	session *rabbitmq.DrainSession
}

// New wraps an already-connected broker client. The client declares the
// durable queue on connect, so no further topology work happens here.
func New(client *rabbitmq.Client, cfg *config.Config, log *logger.Logger) *Adapter {
	return &Adapter{
		client:     client,
		inactivity: time.Duration(cfg.Consumer.InactivitySeconds) * time.Second,
		logger:     log,
	}
}

// Send publishes one queue message as persistent JSON, waiting for the
// broker's publisher confirm.
func (a *Adapter) Send(ctx context.Context, msg contracts.QueueMessage) (domain.SendResult, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("brokerqueue: encode message: %w", err)
	}

	if err := a.client.Publish(ctx, body); err != nil {
		return domain.SendResult{}, fmt.Errorf("brokerqueue: publish: %w", err)
	}

	return domain.SendResult{
		MessageID: msg.MessageID,
		QueueType: contracts.QueueTypeBroker,
	}, nil
}

// Receive pulls up to max messages, stopping early on the inactivity
// timeout. The drain session is held open until Close so the returned
// delivery tags stay ackable.
func (a *Adapter) Receive(ctx context.Context, max int) ([]domain.Delivery, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// one drain at a time; a leftover session means unacked tags, which the
	// broker requeues when the channel closes
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}

	session, err := a.client.OpenDrainSession(max)
	if err != nil {
		return nil, fmt.Errorf("brokerqueue: open session: %w", err)
	}

	raw, err := session.Pull(ctx, a.client.Queue(), max, a.inactivity)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("brokerqueue: pull: %w", err)
	}

	a.session = session

	deliveries := make([]domain.Delivery, 0, len(raw))
	for _, d := range raw {
		deliveries = append(deliveries, domain.Delivery{
			Body:        d.Body,
			TransportID: d.MessageId,
			DeliveryTag: d.DeliveryTag,
		})
	}

	return deliveries, nil
}

// Ack permanently removes the message from the queue.
func (a *Adapter) Ack(ctx context.Context, d domain.Delivery) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return errors.New("brokerqueue: ack outside a drain session")
	}
	if err := a.session.Ack(d.DeliveryTag); err != nil {
		return fmt.Errorf("brokerqueue: ack tag %d: %w", d.DeliveryTag, err)
	}
	return nil
}

// Nack returns the message to the queue for redelivery when requeue is set.
func (a *Adapter) Nack(ctx context.Context, d domain.Delivery, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return errors.New("brokerqueue: nack outside a drain session")
	}
	if err := a.session.Nack(d.DeliveryTag, requeue); err != nil {
		return fmt.Errorf("brokerqueue: nack tag %d: %w", d.DeliveryTag, err)
	}
	return nil
}

// Close ends the current drain session, if any. Unacked deliveries are
// requeued by the broker.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
	return nil
}
