package app

import (
	"context"
	"sync"
	"time"

	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/pipeline/domain"
)

// fakeAdapter records sends and serves canned deliveries.
type fakeAdapter struct {
	queueType string

	sendErr error
	recvErr error

	mu         sync.Mutex
	sent       []contracts.QueueMessage
	deliveries []domain.Delivery
	acked      []domain.Delivery
	nacked     []domain.Delivery
	requeued   []bool
	closed     bool
}

func (f *fakeAdapter) Send(ctx context.Context, msg contracts.QueueMessage) (domain.SendResult, error) {
	if f.sendErr != nil {
		return domain.SendResult{}, f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return domain.SendResult{MessageID: msg.MessageID, QueueType: f.queueType}, nil
}

func (f *fakeAdapter) Receive(ctx context.Context, max int) ([]domain.Delivery, error) {
	if f.recvErr != nil {
		return nil, f.recvErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deliveries) > max {
		return f.deliveries[:max], nil
	}
	return f.deliveries, nil
}

func (f *fakeAdapter) Ack(ctx context.Context, d domain.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, d)
	return nil
}

func (f *fakeAdapter) Nack(ctx context.Context, d domain.Delivery, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, d)
	f.requeued = append(f.requeued, requeue)
	return nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeStore is an in-memory metric store with per-message failure injection.
type fakeStore struct {
	mu      sync.Mutex
	records []contracts.MetricRecord
	failFor map[string]bool // message_id -> Put fails
	getErr  error
}

func (f *fakeStore) Put(ctx context.Context, rec contracts.MetricRecord) error {
	if f.failFor[rec.MessageID] {
		return errAccessDenied
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) GetAll(ctx context.Context) ([]contracts.MetricRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]contracts.MetricRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

// instantSimulator returns a deterministic simulator with no real delay.
func instantSimulator(success bool, elapsed time.Duration) domain.ProcessSimulator {
	return func(ctx context.Context) (bool, time.Duration) {
		return success, elapsed
	}
}
