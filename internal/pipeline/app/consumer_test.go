package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/domain"
)

func testDelivery(t *testing.T, msgID, queueType string, tag uint64) domain.Delivery {
	t.Helper()
	msg := contracts.QueueMessage{
		MessageID:      msgID,
		TimestampSent:  contracts.FormatTimestamp(time.Now().Add(-50 * time.Millisecond)),
		QueueType:      queueType,
		PassengerName:  "Bob",
		CurrentAddress: "3 Pine Rd",
		Destination:    "4 Elm St",
		Phone:          "N/A",
	}
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return domain.Delivery{Body: body, DeliveryTag: tag}
}

func TestProcessBatchCountsFailures(t *testing.T) {
	store := &fakeStore{failFor: map[string]bool{"m2": true, "m4": true}}
	c := NewConsumer(store, &fakeAdapter{}, instantSimulator(true, 150*time.Millisecond), logger.New("test"))

	var batch []domain.Delivery
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		batch = append(batch, testDelivery(t, id, contracts.QueueTypeManaged, 0))
	}

	res := c.ProcessBatch(context.Background(), contracts.QueueTypeManaged, batch)

	if res.Processed != 2 || res.Failed != 2 || res.Total != 4 {
		t.Fatalf("result = %+v, want {Processed:2 Failed:2 Total:4}", res)
	}
	if len(store.records) != 2 {
		t.Errorf("store holds %d records, want 2", len(store.records))
	}
}

func TestProcessBatchMalformedPayload(t *testing.T) {
	store := &fakeStore{}
	c := NewConsumer(store, &fakeAdapter{}, instantSimulator(true, 150*time.Millisecond), logger.New("test"))

	batch := []domain.Delivery{
		{Body: []byte("not json at all")},
		testDelivery(t, "ok", contracts.QueueTypeManaged, 0),
	}

	res := c.ProcessBatch(context.Background(), contracts.QueueTypeManaged, batch)

	if res.Processed != 1 || res.Failed != 1 || res.Total != 2 {
		t.Fatalf("result = %+v, want {Processed:1 Failed:1 Total:2}", res)
	}
}

func TestProcessBatchAllFailingNeverPanics(t *testing.T) {
	store := &fakeStore{failFor: map[string]bool{"a": true, "b": true, "c": true}}
	c := NewConsumer(store, &fakeAdapter{}, instantSimulator(true, 150*time.Millisecond), logger.New("test"))

	var batch []domain.Delivery
	for _, id := range []string{"a", "b", "c"} {
		batch = append(batch, testDelivery(t, id, contracts.QueueTypeManaged, 0))
	}

	res := c.ProcessBatch(context.Background(), contracts.QueueTypeManaged, batch)
	if res.Processed != 0 || res.Failed != 3 || res.Total != 3 {
		t.Fatalf("result = %+v, want {Processed:0 Failed:3 Total:3}", res)
	}
}

func TestDrainBrokerAcksAndRequeues(t *testing.T) {
	broker := &fakeAdapter{queueType: contracts.QueueTypeBroker}
	for i, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		broker.deliveries = append(broker.deliveries, testDelivery(t, id, contracts.QueueTypeBroker, uint64(i+1)))
	}

	store := &fakeStore{failFor: map[string]bool{"m3": true}}
	c := NewConsumer(store, broker, instantSimulator(true, 150*time.Millisecond), logger.New("test"))

	res := c.DrainBroker(context.Background(), 10)

	if len(res.Processed) != 4 {
		t.Fatalf("processed %d records, want 4", len(res.Processed))
	}
	for _, rec := range res.Processed {
		if rec.MessageID == "m3" {
			t.Errorf("failed message m3 appears in processed list")
		}
		if rec.QueueType != contracts.QueueTypeBroker {
			t.Errorf("record queue_type = %q, want broker", rec.QueueType)
		}
	}

	if len(broker.acked) != 4 {
		t.Errorf("acked %d, want 4", len(broker.acked))
	}
	if len(broker.nacked) != 1 {
		t.Fatalf("nacked %d, want 1", len(broker.nacked))
	}
	if broker.nacked[0].DeliveryTag != 3 {
		t.Errorf("nacked tag %d, want 3", broker.nacked[0].DeliveryTag)
	}
	if !broker.requeued[0] {
		t.Errorf("nack did not request requeue")
	}
	if !broker.closed {
		t.Errorf("drain session not closed")
	}
}

func TestDrainBrokerTransportFailure(t *testing.T) {
	broker := &fakeAdapter{recvErr: errAccessDenied}
	c := NewConsumer(&fakeStore{}, broker, instantSimulator(true, 0), logger.New("test"))

	res := c.DrainBroker(context.Background(), 10)

	if len(res.Processed) != 0 {
		t.Fatalf("processed %d records, want 0", len(res.Processed))
	}
	if res.Timestamp == "" {
		t.Errorf("timestamp missing from drain result")
	}
}

func TestProcessRecordShape(t *testing.T) {
	store := &fakeStore{}
	c := NewConsumer(store, &fakeAdapter{}, instantSimulator(false, 237*time.Millisecond), logger.New("test"))

	res := c.ProcessBatch(context.Background(), contracts.QueueTypeManaged,
		[]domain.Delivery{testDelivery(t, "m1", contracts.QueueTypeManaged, 0)})
	if res.Processed != 1 {
		t.Fatalf("result = %+v", res)
	}

	rec := store.records[0]
	if rec.Status != contracts.StatusFailed {
		t.Errorf("status = %q, want failed for an unsuccessful simulated outcome", rec.Status)
	}
	if rec.ProcessingTimeMS != 237 {
		t.Errorf("processing_time_ms = %v, want 237", rec.ProcessingTimeMS)
	}
	if rec.LatencyMS < 0 {
		t.Errorf("latency_ms = %v, must be non-negative", rec.LatencyMS)
	}
	if _, err := contracts.ParseTimestamp(rec.TimestampReceived); err != nil {
		t.Errorf("timestamp_received %q does not parse: %v", rec.TimestampReceived, err)
	}
}

func TestProcessRecordsTransportIdentity(t *testing.T) {
	store := &fakeStore{}
	c := NewConsumer(store, &fakeAdapter{}, instantSimulator(true, 150*time.Millisecond), logger.New("test"))

	d := testDelivery(t, "m1", contracts.QueueTypeManaged, 0)
	d.TransportID = "transport-abc123"

	res := c.ProcessBatch(context.Background(), contracts.QueueTypeManaged, []domain.Delivery{d})
	if res.Processed != 1 {
		t.Fatalf("result = %+v", res)
	}

	if got := store.records[0].TransportMessageID; got != "transport-abc123" {
		t.Errorf("transport_message_id = %q, want transport-abc123", got)
	}
}

func TestProcessBatchCancelledContext(t *testing.T) {
	store := &fakeStore{}
	c := NewConsumer(store, &fakeAdapter{}, instantSimulator(true, 150*time.Millisecond), logger.New("test"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.ProcessBatch(ctx, contracts.QueueTypeManaged,
		[]domain.Delivery{testDelivery(t, "m1", contracts.QueueTypeManaged, 0)})

	if res.Processed != 0 || res.Failed != 1 {
		t.Fatalf("result = %+v, want the interrupted message counted as failed", res)
	}
	if len(store.records) != 0 {
		t.Errorf("a cancelled processing attempt left %d records behind", len(store.records))
	}
}

func TestProcessDefaultsUnknownIdentity(t *testing.T) {
	store := &fakeStore{}
	c := NewConsumer(store, &fakeAdapter{}, instantSimulator(true, 100*time.Millisecond), logger.New("test"))

	// valid JSON, no message_id and no parseable timestamp
	res := c.ProcessBatch(context.Background(), contracts.QueueTypeManaged,
		[]domain.Delivery{{Body: []byte(`{"passenger_name":"Eve"}`)}})
	if res.Processed != 1 {
		t.Fatalf("result = %+v", res)
	}

	rec := store.records[0]
	if rec.MessageID != "unknown" {
		t.Errorf("message_id = %q, want unknown", rec.MessageID)
	}
	if rec.LatencyMS != 0 {
		t.Errorf("latency_ms = %v, want 0 for malformed timestamp_sent", rec.LatencyMS)
	}
	if rec.CurrentAddress != "N/A" || rec.Destination != "N/A" {
		t.Errorf("missing payload fields not defaulted: %+v", rec)
	}
}
