package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DrainSession owns a dedicated channel for one bounded pull and the
// acks/nacks that follow it. Delivery tags are only valid while the
// session is open, so the session must outlive the acks.
type DrainSession struct {
	ch  *amqp.Channel
	tag string
}

// OpenDrainSession opens a fresh channel with prefetch applied.
func (client *Client) OpenDrainSession(prefetch int) (*DrainSession, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if prefetch < 1 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
	}

	return &DrainSession{
		ch:  ch,
		tag: fmt.Sprintf("drain-%d", time.Now().UnixNano()),
	}, nil
}

// Pull consumes up to max deliveries with manual acks, stopping early when
// no message arrives within the inactivity window. Whatever was collected
// so far is always returned.
func (session *DrainSession) Pull(ctx context.Context, queue string, max int, inactivity time.Duration) ([]amqp.Delivery, error) {
	deliveries, err := session.ch.Consume(
		queue,
		session.tag,
		false, // autoAck
		false, // exclusive
		false, // noLocal (ignored by RabbitMQ)
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: consume(%s): %w", queue, err)
	}

	// stop the broker from pushing more once the bound is reached; the
	// channel stays open for the acks
	defer func() { _ = session.ch.Cancel(session.tag, false) }()

	chClosed := session.ch.NotifyClose(make(chan *amqp.Error, 1))

	timer := time.NewTimer(inactivity)
	defer timer.Stop()

	var out []amqp.Delivery
	for len(out) < max {
		select {
		case <-ctx.Done():
			return out, ctx.Err()

		case cerr := <-chClosed:
			if cerr != nil {
				return out, fmt.Errorf("rabbitmq: channel closed while draining %s: %w", queue, cerr)
			}
			return out, nil

		case d, ok := <-deliveries:
			if !ok {
				return out, nil
			}
			out = append(out, d)

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(inactivity)

		case <-timer.C:
			// inactivity bound reached; a clean end, not an error
			return out, nil
		}
	}

	return out, nil
}

// Ack permanently removes one delivery from the queue.
func (session *DrainSession) Ack(tag uint64) error {
	return session.ch.Ack(tag, false)
}

// Nack returns one delivery to the queue for redelivery when requeue is set.
func (session *DrainSession) Nack(tag uint64, requeue bool) error {
	return session.ch.Nack(tag, false, requeue)
}

// Close releases the session channel. Pending unacked deliveries are
// requeued by the broker.
func (session *DrainSession) Close() {
	_ = session.ch.Close()
}
