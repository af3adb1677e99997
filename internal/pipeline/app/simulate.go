package app

import (
	"context"
	"math/rand"
	"time"

	"ride-metrics/internal/pipeline/domain"
)

// Processing simulation bounds.
const (
	minProcessingDelay = 100 * time.Millisecond
	maxProcessingDelay = 500 * time.Millisecond
	failureProbability = 0.02
)

// NewSimulator returns the default randomized ProcessSimulator: a uniform
// delay in [100ms, 500ms) that is actually incurred, then a success draw
// with 2% failure probability. The wait is local to the calling unit of
// work and does not block concurrent units.
func NewSimulator() domain.ProcessSimulator {
	return func(ctx context.Context) (bool, time.Duration) {
		delay := minProcessingDelay +
			time.Duration(rand.Float64()*float64(maxProcessingDelay-minProcessingDelay))

		timer := time.NewTimer(delay)
		defer timer.Stop()

		start := time.Now()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return false, time.Since(start)
		}

		return rand.Float64() > failureProbability, delay
	}
}
