package contracts

// Queue type selector values. Every message and metric record carries one.
const (
	QueueTypeManaged = "managed"
	QueueTypeBroker  = "broker"
)

// Processing status values for a MetricRecord.
const (
	StatusQueued     = "queued"
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
)

// RideRequest is the inbound payload accepted by the producer endpoint.
type RideRequest struct {
	PassengerName  string `json:"passenger_name"`
	CurrentAddress string `json:"current_address"`
	Destination    string `json:"destination"`
	Phone          string `json:"phone,omitempty"`
}

// QueueMessage is the envelope published to either queue.
// Immutable once sent; message_id is the stable identity across
// send -> receive -> metric record.
type QueueMessage struct {
	MessageID      string `json:"message_id"`
	TimestampSent  string `json:"timestamp_sent"`
	QueueType      string `json:"queue_type"`
	PassengerName  string `json:"passenger_name"`
	CurrentAddress string `json:"current_address"`
	Destination    string `json:"destination"`
	Phone          string `json:"phone"`
}

// MetricRecord is the durable per-processed-message observation, one per
// successful processing attempt, persisted to the metric store.
type MetricRecord struct {
	MessageID          string  `json:"message_id"`
	QueueType          string  `json:"queue_type"`
	TimestampSent      string  `json:"timestamp_sent"`
	TimestampReceived  string  `json:"timestamp_received"`
	TimestampProcessed string  `json:"timestamp_processed"`
	LatencyMS          float64 `json:"latency_ms"`
	ProcessingTimeMS   float64 `json:"processing_time_ms"`
	Status             string  `json:"status"`
	PassengerName      string  `json:"passenger_name"`
	CurrentAddress     string  `json:"current_address"`
	Destination        string  `json:"destination"`

	// Transport correlation, kept for traceability only.
	TransportMessageID string `json:"transport_message_id,omitempty"`
	ReceiptHandle      string `json:"receipt_handle,omitempty"`
	DeliveryTag        string `json:"delivery_tag,omitempty"`
}

// LatencyStats summarizes queue latency for one queue type, in milliseconds.
type LatencyStats struct {
	AvgMS    float64 `json:"avg_ms"`
	MinMS    float64 `json:"min_ms"`
	MaxMS    float64 `json:"max_ms"`
	MedianMS float64 `json:"median_ms"`
	P95MS    float64 `json:"p95_ms"`
	P99MS    float64 `json:"p99_ms"`
}

// ProcessingStats summarizes simulated processing time, in milliseconds.
type ProcessingStats struct {
	AvgMS float64 `json:"avg_ms"`
	MinMS float64 `json:"min_ms"`
	MaxMS float64 `json:"max_ms"`
}

// StatSummary is the derived rollup for one queue type. Never persisted;
// recomputed from the full metric set on every comparison call.
type StatSummary struct {
	Count           int             `json:"count"`
	Latency         LatencyStats    `json:"latency"`
	ProcessingTime  ProcessingStats `json:"processing_time"`
	SuccessRate     float64         `json:"success_rate"`
	SuccessfulCount int             `json:"successful_count"`
	FailedCount     int             `json:"failed_count"`
}
