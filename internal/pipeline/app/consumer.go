package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/domain"
)

// Consumer runs the shared per-message processing routine in two delivery
// modes. Push mode is handed already-delivered batches and only counts
// outcomes; pull mode drains the broker itself and acks or requeues each
// message based on its own persistence attempt.
type Consumer struct {
	store    domain.MetricStore
	broker   domain.QueueAdapter
	simulate domain.ProcessSimulator
	logger   *logger.Logger

	// serializes drains so the ticker and the HTTP trigger cannot swap the
	// broker session out from under each other's acks
	drainMu sync.Mutex

	now func() time.Time
}

// NewConsumer wires a consumer over the metric store and the broker
// adapter. The simulator is injectable for deterministic tests.
func NewConsumer(store domain.MetricStore, broker domain.QueueAdapter, sim domain.ProcessSimulator, log *logger.Logger) *Consumer {
	return &Consumer{
		store:    store,
		broker:   broker,
		simulate: sim,
		logger:   log,
		now:      time.Now,
	}
}

// ProcessBatch handles one push-delivered batch. Every message is
// attempted; failures are counted, never escalated, and nothing is
// requeued from here — redelivery of dropped messages is the upstream
// queue's redrive policy.
func (c *Consumer) ProcessBatch(ctx context.Context, queueType string, deliveries []domain.Delivery) domain.BatchResult {
	result := domain.BatchResult{Total: len(deliveries)}

	for _, d := range deliveries {
		if _, err := c.process(ctx, queueType, d); err != nil {
			result.Failed++
			c.logger.Error(ctx, "message_failed", "Failed to process message", err,
				map[string]any{"queue_type": queueType})
			continue
		}
		result.Processed++
	}

	c.logger.Info(ctx, "batch_complete", "Batch processing complete",
		map[string]any{"processed": result.Processed, "failed": result.Failed, "total": result.Total})

	return result
}

// DrainBroker pulls up to max messages from the broker queue and processes
// them strictly sequentially. Each message is acked only after its own
// metric record persisted, or nacked with requeue otherwise. Transport
// failures end the drain with whatever was processed so far.
func (c *Consumer) DrainBroker(ctx context.Context, max int) domain.DrainResult {
	c.drainMu.Lock()
	defer c.drainMu.Unlock()

	result := domain.DrainResult{Processed: []contracts.MetricRecord{}}

	deliveries, err := c.broker.Receive(ctx, max)
	if err != nil {
		c.logger.Error(ctx, "broker_receive_failed", "Failed to pull from broker queue", err, nil)
		result.Timestamp = contracts.FormatTimestamp(c.now())
		return result
	}
	defer c.broker.Close()

	for _, d := range deliveries {
		rec, err := c.process(ctx, contracts.QueueTypeBroker, d)
		if err != nil {
			c.logger.Error(ctx, "message_requeued", "Processing failed, returning message to queue", err,
				map[string]any{"delivery_tag": d.DeliveryTag})
			if nerr := c.broker.Nack(ctx, d, true); nerr != nil {
				c.logger.Error(ctx, "nack_failed", "Failed to requeue message", nerr, nil)
			}
			continue
		}

		if aerr := c.broker.Ack(ctx, d); aerr != nil {
			// the record is stored; a failed ack means a possible redelivery,
			// which the upstream contract tolerates
			c.logger.Error(ctx, "ack_failed", "Failed to acknowledge message", aerr,
				map[string]any{"message_id": rec.MessageID})
		}
		result.Processed = append(result.Processed, rec)
	}

	result.Timestamp = contracts.FormatTimestamp(c.now())

	c.logger.Info(ctx, "drain_complete", "Broker drain complete",
		map[string]any{"processed": len(result.Processed)})

	return result
}

// process is the shared routine: parse, measure latency, simulate
// processing, persist the record. A persistence failure produces no record
// in the store — the attempt stays invisible to aggregation until a
// successful retry.
func (c *Consumer) process(ctx context.Context, queueType string, d domain.Delivery) (contracts.MetricRecord, error) {
	var msg contracts.QueueMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return contracts.MetricRecord{}, fmt.Errorf("%w: %s", domain.ErrMalformedMessage, err)
	}

	messageID := msg.MessageID
	if messageID == "" {
		messageID = "unknown"
	}
	ctx = c.logger.WithMessageID(ctx, messageID)

	received := contracts.FormatTimestamp(c.now())

	latency, err := contracts.LatencyMS(msg.TimestampSent, received)
	if err != nil {
		// malformed send timestamp: latency defaults to 0, not fatal
		c.logger.Error(ctx, "latency_unparsed", "Could not compute latency from timestamp_sent", err,
			map[string]any{"timestamp_sent": msg.TimestampSent})
	}

	success, elapsed := c.simulate(ctx)

	// a cancelled delay is not a processing outcome; leave nothing behind
	// so the message stays eligible for redelivery
	if err := ctx.Err(); err != nil {
		return contracts.MetricRecord{}, fmt.Errorf("processing interrupted: %w", err)
	}

	status := contracts.StatusSuccessful
	if !success {
		status = contracts.StatusFailed
	}

	rec := contracts.MetricRecord{
		MessageID:          messageID,
		QueueType:          queueType,
		TimestampSent:      msg.TimestampSent,
		TimestampReceived:  received,
		TimestampProcessed: contracts.FormatTimestamp(c.now()),
		LatencyMS:          round2(latency),
		ProcessingTimeMS:   round2(elapsed.Seconds() * 1000),
		Status:             status,
		PassengerName:      orDefault(msg.PassengerName),
		CurrentAddress:     orDefault(msg.CurrentAddress),
		Destination:        orDefault(msg.Destination),
		TransportMessageID: d.TransportID,
		ReceiptHandle:      d.ReceiptHandle,
	}
	if d.DeliveryTag != 0 {
		rec.DeliveryTag = strconv.FormatUint(d.DeliveryTag, 10)
	}

	if err := c.store.Put(ctx, rec); err != nil {
		return contracts.MetricRecord{}, fmt.Errorf("%w: %s", domain.ErrPersistence, err)
	}

	return rec, nil
}
