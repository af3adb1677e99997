package domain

import (
	"encoding/json"

	"ride-metrics/internal/general/contracts"
)

// SubmissionResult is returned by the producer on a successful send.
type SubmissionResult struct {
	MessageID     string `json:"message_id"`
	Timestamp     string `json:"timestamp"`
	QueueType     string `json:"queue_type"`
	Status        string `json:"status"`
	PassengerName string `json:"passenger_name"`
}

// BatchResult summarizes one push-mode batch. Individual failures are
// bookkeeping only; the batch itself never fails.
type BatchResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// DrainResult summarizes one pull-mode drain.
type DrainResult struct {
	Processed []contracts.MetricRecord `json:"processed"`
	Timestamp string                   `json:"timestamp"`
}

// Comparison is the aggregator's response shape.
type Comparison struct {
	TotalMessages int                              `json:"total_messages"`
	Statistics    map[string]contracts.StatSummary `json:"statistics"`
	Timestamp     string                           `json:"timestamp"`
	Messages      []contracts.MetricRecord         `json:"messages,omitempty"`
	Hint          string                           `json:"message,omitempty"`
}

// MarshalJSON distinguishes "no message list requested" (nil, key omitted)
// from "an empty list" (non-nil, rendered as []). The empty metric set
// always carries "messages": [] on the wire.
func (c Comparison) MarshalJSON() ([]byte, error) {
	type base struct {
		TotalMessages int                              `json:"total_messages"`
		Statistics    map[string]contracts.StatSummary `json:"statistics"`
		Timestamp     string                           `json:"timestamp"`
		Hint          string                           `json:"message,omitempty"`
	}

	b := base{
		TotalMessages: c.TotalMessages,
		Statistics:    c.Statistics,
		Timestamp:     c.Timestamp,
		Hint:          c.Hint,
	}

	if c.Messages == nil {
		return json.Marshal(b)
	}

	return json.Marshal(struct {
		base
		Messages []contracts.MetricRecord `json:"messages"`
	}{b, c.Messages})
}
