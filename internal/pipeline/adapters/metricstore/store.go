package metricstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ride-metrics/internal/general/config"
	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Store persists metric records as JSON objects, one per processed
// message, keyed by queue type, timestamp, and message identity.
type Store struct {
	client *s3.Client
	bucket string
	region string
	logger *logger.Logger
	now    func() time.Time
}

// New returns a store bound to the configured bucket.
func New(client *s3.Client, cfg *config.Config, log *logger.Logger) *Store {
	return &Store{
		client: client,
		bucket: cfg.AWS.Bucket,
		region: cfg.AWS.Region,
		logger: log,
		now:    time.Now,
	}
}

// EnsureBucket creates the bucket if absent; an already-owned bucket is
// not an error.
func (s *Store) EnsureBucket(ctx context.Context) error {
	in := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit location constraint
	if s.region != "us-east-1" {
		in.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(s.region),
		}
	}

	_, err := s.client.CreateBucket(ctx, in)
	if err != nil {
		var owned *s3types.BucketAlreadyOwnedByYou
		var exists *s3types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("metricstore: create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Key builds the object key for one record:
// <queue_type>/<UTC compact timestamp>_<message_id>.json
func (s *Store) Key(rec contracts.MetricRecord) string {
	ts := s.now().UTC().Format(contracts.CompactTimestampLayout)
	return fmt.Sprintf("%s/%s_%s.json", rec.QueueType, ts, rec.MessageID)
}

// Put writes one metric record. Failure here means the source message must
// not be acknowledged; no partial record ever reaches the store.
func (s *Store) Put(ctx context.Context, rec contracts.MetricRecord) error {
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("metricstore: encode record %s: %w", rec.MessageID, err)
	}

	key := s.Key(rec)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("metricstore: put %s: %w", key, err)
	}

	s.logger.Debug(ctx, "metric_stored", "Metric record stored",
		map[string]any{"key": key, "queue_type": rec.QueueType})

	return nil
}

// GetAll scans the whole bucket and returns every readable metric record.
// Unreadable or non-JSON keys are logged and skipped; a partially-read set
// is an acceptable result, not an error.
func (s *Store) GetAll(ctx context.Context) ([]contracts.MetricRecord, error) {
	var records []contracts.MetricRecord

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("metricstore: list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}

			rec, err := s.getOne(ctx, key)
			if err != nil {
				s.logger.Error(ctx, "metric_read_failed", "Skipping unreadable metric object", err,
					map[string]any{"key": key})
				continue
			}
			records = append(records, rec)
		}
	}

	return records, nil
}

func (s *Store) getOne(ctx context.Context, key string) (contracts.MetricRecord, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return contracts.MetricRecord{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return contracts.MetricRecord{}, fmt.Errorf("read %s: %w", key, err)
	}

	var rec contracts.MetricRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return contracts.MetricRecord{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec, nil
}
