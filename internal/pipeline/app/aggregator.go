package app

import (
	"context"
	"math"
	"sort"
	"time"

	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/domain"
)

// DefaultDetailLimit caps the raw record list when the caller does not ask
// for a specific limit.
const DefaultDetailLimit = 100

// Aggregator computes comparative statistics across queue types from the
// full current metric set. Nothing is cached; every call is a fresh scan.
type Aggregator struct {
	store  domain.MetricStore
	logger *logger.Logger
	now    func() time.Time
}

// NewAggregator wires an aggregator over the metric store.
func NewAggregator(store domain.MetricStore, log *logger.Logger) *Aggregator {
	return &Aggregator{store: store, logger: log, now: time.Now}
}

// Compare reads every stored metric record, groups by queue type, and
// computes the per-queue summaries. With includeDetails the most recent
// records (up to limit) are attached; otherwise a hint string takes their
// place.
func (a *Aggregator) Compare(ctx context.Context, includeDetails bool, limit int) (domain.Comparison, error) {
	records, err := a.store.GetAll(ctx)
	if err != nil {
		return domain.Comparison{}, err
	}

	if len(records) == 0 {
		return domain.Comparison{
			TotalMessages: 0,
			Statistics:    map[string]contracts.StatSummary{},
			Messages:      []contracts.MetricRecord{},
			Hint:          "No metrics found",
			Timestamp:     contracts.FormatTimestamp(a.now()),
		}, nil
	}

	groups := map[string][]contracts.MetricRecord{}
	for _, r := range records {
		qt := r.QueueType
		if qt == "" {
			qt = "unknown"
		}
		groups[qt] = append(groups[qt], r)
	}

	stats := make(map[string]contracts.StatSummary, len(groups))
	for qt, group := range groups {
		stats[qt] = summarize(group)
	}

	// most recent first; the fixed-width timestamp format makes plain
	// string comparison sufficient
	sort.Slice(records, func(i, j int) bool {
		return records[i].TimestampReceived > records[j].TimestampReceived
	})

	cmp := domain.Comparison{
		TotalMessages: len(records),
		Statistics:    stats,
		Timestamp:     contracts.FormatTimestamp(a.now()),
	}

	if includeDetails {
		if limit <= 0 {
			limit = DefaultDetailLimit
		}
		if len(records) > limit {
			records = records[:limit]
		}
		cmp.Messages = records
	} else {
		cmp.Hint = "Add ?details=true to see individual messages"
	}

	return cmp, nil
}

// summarize computes the rollup for one queue type.
func summarize(records []contracts.MetricRecord) contracts.StatSummary {
	n := len(records)
	latencies := make([]float64, 0, n)
	ptimes := make([]float64, 0, n)
	successful := 0

	for _, r := range records {
		latencies = append(latencies, r.LatencyMS)
		ptimes = append(ptimes, r.ProcessingTimeMS)
		if r.Status == contracts.StatusSuccessful {
			successful++
		}
	}

	sort.Float64s(latencies)
	sort.Float64s(ptimes)

	return contracts.StatSummary{
		Count: n,
		Latency: contracts.LatencyStats{
			AvgMS:    round2(mean(latencies)),
			MinMS:    round2(latencies[0]),
			MaxMS:    round2(latencies[n-1]),
			MedianMS: round2(latencies[n/2]),
			P95MS:    round2(percentile(latencies, 0.95)),
			P99MS:    round2(percentile(latencies, 0.99)),
		},
		ProcessingTime: contracts.ProcessingStats{
			AvgMS: round2(mean(ptimes)),
			MinMS: round2(ptimes[0]),
			MaxMS: round2(ptimes[n-1]),
		},
		SuccessRate:     round4(float64(successful) / float64(n)),
		SuccessfulCount: successful,
		FailedCount:     n - successful,
	}
}

// percentile uses the floor(L*p) index over an ascending-sorted sequence.
// Existing consumers of this statistic depend on the convention bit-for-bit,
// so no interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
