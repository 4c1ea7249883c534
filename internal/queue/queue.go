package queue

import (
	"context"
	"time"
)

// Package queue provides the async path for provider-key usage accounting.
// Two backends exist: an in-memory channel queue for standalone deployments
// and a Redis list queue that survives restarts and supports multiple
// gateway instances. Only quota bookkeeping flows through here; the user
// balance debit is always synchronous and transactional.

// Queue defines the interface for message queuing
type Queue interface {
	// Enqueue adds an item to the queue
	Enqueue(ctx context.Context, item interface{}) error

	// DequeueWithTimeout retrieves up to maxItems items, waiting at most
	// timeout for the first one. Returns an empty slice on timeout.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]interface{}, error)

	// Length returns the current queue length
	Length(ctx context.Context) (int, error)

	// Close shuts down the queue gracefully
	Close() error
}

// DeadLetterQueue holds items that exhausted their retries
type DeadLetterQueue interface {
	// Add adds a failed item with its final error
	Add(ctx context.Context, item interface{}, err error) error

	// List retrieves up to maxItems items (0 means all)
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)

	// Remove removes an item by id
	Remove(ctx context.Context, id string) error

	// Close shuts down the dead letter queue
	Close() error
}

// DeadLetterItem represents a failed item parked for inspection
type DeadLetterItem struct {
	ID        string      `json:"id"`
	Item      interface{} `json:"item"`
	Error     string      `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// Config holds queue tuning knobs
type Config struct {
	QueueName    string
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultConfig returns default queue configuration
func DefaultConfig(queueName string) *Config {
	return &Config{
		QueueName:    queueName,
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
	}
}
