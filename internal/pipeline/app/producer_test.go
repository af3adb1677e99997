package app

import (
	"context"
	"errors"
	"testing"

	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/domain"

	"github.com/google/uuid"
)

var errAccessDenied = errors.New("access denied")

func validRequest() contracts.RideRequest {
	return contracts.RideRequest{
		PassengerName:  "Alice",
		CurrentAddress: "1 Main St",
		Destination:    "2 Oak Ave",
	}
}

func TestSubmitRoutesToSelectedQueue(t *testing.T) {
	for _, selector := range []string{contracts.QueueTypeManaged, contracts.QueueTypeBroker} {
		t.Run(selector, func(t *testing.T) {
			managed := &fakeAdapter{queueType: contracts.QueueTypeManaged}
			broker := &fakeAdapter{queueType: contracts.QueueTypeBroker}
			p := NewProducer(managed, broker, logger.New("test"))

			res, err := p.Submit(context.Background(), validRequest(), selector)
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}

			if res.QueueType != selector {
				t.Errorf("queue_type = %q, want %q", res.QueueType, selector)
			}
			if res.Status != contracts.StatusQueued {
				t.Errorf("status = %q, want %q", res.Status, contracts.StatusQueued)
			}
			if _, err := uuid.Parse(res.MessageID); err != nil {
				t.Errorf("message_id %q is not a well-formed identity: %v", res.MessageID, err)
			}
			if _, err := contracts.ParseTimestamp(res.Timestamp); err != nil {
				t.Errorf("timestamp %q does not parse: %v", res.Timestamp, err)
			}

			target, other := managed, broker
			if selector == contracts.QueueTypeBroker {
				target, other = broker, managed
			}
			if len(target.sent) != 1 {
				t.Fatalf("selected adapter saw %d messages, want 1", len(target.sent))
			}
			if len(other.sent) != 0 {
				t.Fatalf("other adapter saw %d messages, want 0", len(other.sent))
			}
			if target.sent[0].MessageID != res.MessageID {
				t.Errorf("sent message_id %q != result message_id %q", target.sent[0].MessageID, res.MessageID)
			}
		})
	}
}

func TestSubmitGeneratesUniqueIdentity(t *testing.T) {
	managed := &fakeAdapter{queueType: contracts.QueueTypeManaged}
	p := NewProducer(managed, &fakeAdapter{}, logger.New("test"))

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		res, err := p.Submit(context.Background(), validRequest(), contracts.QueueTypeManaged)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if seen[res.MessageID] {
			t.Fatalf("duplicate message_id %q", res.MessageID)
		}
		seen[res.MessageID] = true
	}
}

func TestSubmitMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		req   contracts.RideRequest
		field string
	}{
		{"passenger_name", contracts.RideRequest{CurrentAddress: "a", Destination: "b"}, "passenger_name"},
		{"current_address", contracts.RideRequest{PassengerName: "x", Destination: "b"}, "current_address"},
		{"destination", contracts.RideRequest{PassengerName: "x", CurrentAddress: "a"}, "destination"},
		{"whitespace_only", contracts.RideRequest{PassengerName: "  ", CurrentAddress: "a", Destination: "b"}, "passenger_name"},
		{"all_missing_names_first", contracts.RideRequest{}, "passenger_name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProducer(&fakeAdapter{}, &fakeAdapter{}, logger.New("test"))

			_, err := p.Submit(context.Background(), tc.req, contracts.QueueTypeManaged)

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Errorf("named field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}

func TestSubmitInvalidSelector(t *testing.T) {
	p := NewProducer(&fakeAdapter{}, &fakeAdapter{}, logger.New("test"))

	for _, selector := range []string{"kafka", "", "sqs"} {
		if _, err := p.Submit(context.Background(), validRequest(), selector); !errors.Is(err, domain.ErrInvalidSelector) {
			t.Errorf("selector %q: error = %v, want ErrInvalidSelector", selector, err)
		}
	}
}

func TestSubmitDeliveryError(t *testing.T) {
	managed := &fakeAdapter{queueType: contracts.QueueTypeManaged, sendErr: errors.New("connection refused")}
	p := NewProducer(managed, &fakeAdapter{}, logger.New("test"))

	_, err := p.Submit(context.Background(), validRequest(), contracts.QueueTypeManaged)
	if !errors.Is(err, domain.ErrDelivery) {
		t.Fatalf("error = %v, want ErrDelivery", err)
	}
	if len(managed.sent) != 0 {
		t.Errorf("message recorded as sent despite delivery failure")
	}
}

func TestSubmitDefaultsOptionalPhone(t *testing.T) {
	managed := &fakeAdapter{queueType: contracts.QueueTypeManaged}
	p := NewProducer(managed, &fakeAdapter{}, logger.New("test"))

	if _, err := p.Submit(context.Background(), validRequest(), contracts.QueueTypeManaged); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := managed.sent[0].Phone; got != "N/A" {
		t.Errorf("phone = %q, want N/A", got)
	}
}
