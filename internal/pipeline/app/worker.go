package app

import (
	"context"
	"time"

	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/pipeline/domain"
)

// receiveErrorBackoff throttles the managed receive loop after a transport
// failure so a dead backend does not spin the loop.
const receiveErrorBackoff = 5 * time.Second

// RunManagedReceiveLoop long-polls the managed queue and hands each
// delivered batch to the push-mode routine. After the batch handler
// returns, every delivered message is acknowledged — the event-source
// contract: a non-error handler completes the whole batch, and messages
// whose persistence failed rely on the upstream redrive policy.
// Blocks until ctx is cancelled.
func (c *Consumer) RunManagedReceiveLoop(ctx context.Context, managed domain.QueueAdapter, batchSize int) {
	c.logger.Info(ctx, "managed_loop_started", "Managed queue receive loop started",
		map[string]any{"batch_size": batchSize})

	for {
		select {
		case <-ctx.Done():
			c.logger.Info(ctx, "managed_loop_stopped", "Managed queue receive loop stopped", nil)
			return
		default:
		}

		deliveries, err := managed.Receive(ctx, batchSize)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error(ctx, "managed_receive_failed", "Failed to receive from managed queue", err, nil)
			select {
			case <-ctx.Done():
			case <-time.After(receiveErrorBackoff):
			}
			continue
		}
		if len(deliveries) == 0 {
			continue
		}

		c.ProcessBatch(ctx, contracts.QueueTypeManaged, deliveries)

		for _, d := range deliveries {
			if err := managed.Ack(ctx, d); err != nil {
				c.logger.Error(ctx, "managed_ack_failed", "Failed to complete delivered message", err, nil)
			}
		}
	}
}

// RunBrokerDrainTicker runs one pull-mode drain per interval, the
// scheduled-trigger analog for the broker queue. Blocks until ctx is
// cancelled.
func (c *Consumer) RunBrokerDrainTicker(ctx context.Context, interval time.Duration, max int) {
	c.logger.Info(ctx, "drain_ticker_started", "Broker drain ticker started",
		map[string]any{"interval": interval.String(), "max_messages": max})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info(ctx, "drain_ticker_stopped", "Broker drain ticker stopped", nil)
			return
		case <-ticker.C:
			c.DrainBroker(ctx, max)
		}
	}
}
