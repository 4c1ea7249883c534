package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"englishqa/internal/utils"
)

// S3Writer uploads batches of exchange records to S3 as JSON Lines objects
type S3Writer struct {
	client       *s3.Client
	bucket       string
	prefix       string
	instanceName string
	logger       *utils.Logger
}

// NewS3Writer creates a new S3 writer using the default AWS credential chain
func NewS3Writer(ctx context.Context, bucket, region, prefix, instanceName string) (*S3Writer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Writer{
		client:       s3.NewFromConfig(cfg),
		bucket:       bucket,
		prefix:       prefix,
		instanceName: instanceName,
		logger:       utils.NewLogger("s3-writer"),
	}, nil
}

// WriteBatch uploads a batch of exchanges and returns the object key.
// Keys are date-partitioned, e.g. exchanges/2026/08/31/gateway-0-20260831-143022-123456789.jsonl
func (w *S3Writer) WriteBatch(ctx context.Context, records []*Exchange) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	now := time.Now()
	key := fmt.Sprintf("%s%04d/%02d/%02d/%s-%s-%d.jsonl",
		w.prefix,
		now.Year(),
		now.Month(),
		now.Day(),
		w.instanceName,
		now.Format("20060102-150405"),
		now.Nanosecond(),
	)

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			w.logger.Error("failed to encode exchange", "error", err)
			continue
		}
	}

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	w.logger.Info("wrote exchange batch to S3", "key", key, "count", len(records), "bytes", buf.Len())
	return key, nil
}
