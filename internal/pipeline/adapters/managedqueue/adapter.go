package managedqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-metrics/internal/general/config"
	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// receiveBatchCap is the transport's hard per-call ceiling.
const receiveBatchCap = 10

// Adapter routes messages through the hosted queue service. Delivery is
// push-style from the consumer's point of view: the service long-polls and
// hands over whole batches.
type Adapter struct {
	client   *sqs.Client
	queueURL string
	waitSecs int32
	logger   *logger.Logger
}

// New declares the queue idempotently (created if absent, no error if
// already present) and returns the adapter bound to its URL.
func New(ctx context.Context, client *sqs.Client, cfg *config.Config, log *logger.Logger) (*Adapter, error) {
	out, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String(cfg.AWS.Queue),
	})
	if err != nil {
		return nil, fmt.Errorf("managedqueue: declare queue %s: %w", cfg.AWS.Queue, err)
	}

	return &Adapter{
		client:   client,
		queueURL: aws.ToString(out.QueueUrl),
		waitSecs: int32(cfg.Consumer.ReceiveWaitSeconds),
		logger:   log,
	}, nil
}

// Send publishes one queue message as a JSON body.
func (a *Adapter) Send(ctx context.Context, msg contracts.QueueMessage) (domain.SendResult, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("managedqueue: encode message: %w", err)
	}

	out, err := a.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(a.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("managedqueue: send: %w", err)
	}

	a.logger.Debug(ctx, "managed_send", "Message sent to managed queue",
		map[string]any{"transport_message_id": aws.ToString(out.MessageId)})

	return domain.SendResult{
		MessageID: aws.ToString(out.MessageId),
		QueueType: contracts.QueueTypeManaged,
	}, nil
}

// Receive long-polls for up to max messages (capped at the transport's
// batch limit). An empty slice after the wait window is a normal outcome.
func (a *Adapter) Receive(ctx context.Context, max int) ([]domain.Delivery, error) {
	if max < 1 {
		max = 1
	}
	if max > receiveBatchCap {
		max = receiveBatchCap
	}

	out, err := a.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(a.queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     a.waitSecs,
	})
	if err != nil {
		return nil, fmt.Errorf("managedqueue: receive: %w", err)
	}

	deliveries := make([]domain.Delivery, 0, len(out.Messages))
	for _, m := range out.Messages {
		deliveries = append(deliveries, domain.Delivery{
			Body:          []byte(aws.ToString(m.Body)),
			TransportID:   aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}

	return deliveries, nil
}

// Ack permanently removes the message from the queue.
func (a *Adapter) Ack(ctx context.Context, d domain.Delivery) error {
	_, err := a.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(a.queueURL),
		ReceiptHandle: aws.String(d.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("managedqueue: ack: %w", err)
	}
	return nil
}

// Nack makes the message redeliverable by resetting its visibility.
// With requeue=false the message is left to expire on its own timeout.
func (a *Adapter) Nack(ctx context.Context, d domain.Delivery, requeue bool) error {
	if !requeue {
		return nil
	}
	_, err := a.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(a.queueURL),
		ReceiptHandle:     aws.String(d.ReceiptHandle),
		VisibilityTimeout: 0,
	})
	if err != nil {
		return fmt.Errorf("managedqueue: nack: %w", err)
	}
	return nil
}

// Close is a no-op; the underlying client is connectionless.
func (a *Adapter) Close() error { return nil }
