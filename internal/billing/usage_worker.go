package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"englishqa/internal/queue"
	"englishqa/internal/utils"
)

// UsageEvent is the queue payload emitted after each answered question.
// It drives provider key quota accounting and spend tracking; the user's
// balance was already debited synchronously before the event was enqueued.
type UsageEvent struct {
	APIKeyID   uuid.UUID `json:"api_key_id"`
	TokensUsed int       `json:"tokens_used"`
	Cost       float64   `json:"cost"`
	Timestamp  time.Time `json:"timestamp"`
}

type keyUsageStore interface {
	AddUsage(ctx context.Context, id uuid.UUID, cost float64) error
}

type spendRecorder interface {
	AddSpend(ctx context.Context, keyID uuid.UUID, amount float64) error
}

// UsageWorker drains usage events from the queue in batches and applies
// them to the provider key quota and the spend tracker. Failed items are
// retried with exponential backoff and parked in the dead letter queue
// once retries are exhausted.
type UsageWorker struct {
	queue  queue.Queue
	dlq    queue.DeadLetterQueue
	keys   keyUsageStore
	spend  spendRecorder
	config *queue.Config
	logger *utils.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewUsageWorker creates a new usage worker
func NewUsageWorker(q queue.Queue, dlq queue.DeadLetterQueue, keys keyUsageStore, spend spendRecorder, config *queue.Config) *UsageWorker {
	if config == nil {
		config = queue.DefaultConfig("usage")
	}

	return &UsageWorker{
		queue:  q,
		dlq:    dlq,
		keys:   keys,
		spend:  spend,
		config: config,
		logger: utils.NewLogger("usage-worker"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the worker loop
func (w *UsageWorker) Start() {
	go w.run()
}

// Stop signals the worker to finish its current batch and waits for it
func (w *UsageWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *UsageWorker) run() {
	defer close(w.doneCh)

	ctx := context.Background()

	for {
		select {
		case <-w.stopCh:
			w.drain(ctx)
			return
		default:
		}

		items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
		if err != nil {
			if err == queue.ErrQueueClosed {
				return
			}
			w.logger.Error("dequeue failed", "error", err)
			time.Sleep(w.config.RetryBackoff)
			continue
		}

		w.processBatch(ctx, items)
	}
}

// drain makes one final non-blocking pass so events enqueued during
// shutdown are not lost
func (w *UsageWorker) drain(ctx context.Context) {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, 100*time.Millisecond)
	if err != nil {
		return
	}
	w.processBatch(ctx, items)
}

func (w *UsageWorker) processBatch(ctx context.Context, items []interface{}) {
	for _, item := range items {
		event, err := decodeUsageEvent(item)
		if err != nil {
			w.logger.Error("undecodable usage event", "error", err)
			if dlqErr := w.dlq.Add(ctx, item, err); dlqErr != nil {
				w.logger.Error("failed to park usage event", "error", dlqErr)
			}
			continue
		}

		if err := w.applyWithRetries(ctx, event); err != nil {
			w.logger.Error("usage event exhausted retries", "api_key_id", event.APIKeyID, "error", err)
			if dlqErr := w.dlq.Add(ctx, event, err); dlqErr != nil {
				w.logger.Error("failed to park usage event", "error", dlqErr)
			}
		}
	}
}

func (w *UsageWorker) applyWithRetries(ctx context.Context, event *UsageEvent) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			time.Sleep(backoff)
		}

		lastErr = w.apply(ctx, event)
		if lastErr == nil {
			return nil
		}
	}

	return lastErr
}

func (w *UsageWorker) apply(ctx context.Context, event *UsageEvent) error {
	if err := w.keys.AddUsage(ctx, event.APIKeyID, event.Cost); err != nil {
		return fmt.Errorf("failed to apply key usage: %w", err)
	}

	if err := w.spend.AddSpend(ctx, event.APIKeyID, event.Cost); err != nil {
		return fmt.Errorf("failed to record spend: %w", err)
	}

	return nil
}

func decodeUsageEvent(item interface{}) (*UsageEvent, error) {
	switch v := item.(type) {
	case *UsageEvent:
		return v, nil
	case UsageEvent:
		return &v, nil
	case json.RawMessage:
		var event UsageEvent
		if err := json.Unmarshal(v, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal usage event: %w", err)
		}
		return &event, nil
	case []byte:
		var event UsageEvent
		if err := json.Unmarshal(v, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal usage event: %w", err)
		}
		return &event, nil
	default:
		return nil, fmt.Errorf("unexpected usage event type %T", item)
	}
}
