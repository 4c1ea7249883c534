package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"englishqa/internal/queue"
)

type fakeKeyUsage struct {
	mu    sync.Mutex
	usage map[uuid.UUID]float64
	fail  int
}

func newFakeKeyUsage() *fakeKeyUsage {
	return &fakeKeyUsage{usage: make(map[uuid.UUID]float64)}
}

func (f *fakeKeyUsage) AddUsage(ctx context.Context, id uuid.UUID, cost float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail > 0 {
		f.fail--
		return assert.AnError
	}

	f.usage[id] += cost
	return nil
}

func (f *fakeKeyUsage) total(id uuid.UUID) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage[id]
}

type fakeSpend struct {
	mu    sync.Mutex
	spend map[uuid.UUID]float64
}

func newFakeSpend() *fakeSpend {
	return &fakeSpend{spend: make(map[uuid.UUID]float64)}
}

func (f *fakeSpend) AddSpend(ctx context.Context, keyID uuid.UUID, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spend[keyID] += amount
	return nil
}

func (f *fakeSpend) total(keyID uuid.UUID) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spend[keyID]
}

func workerTestConfig() *queue.Config {
	return &queue.Config{
		QueueName:    "usage-test",
		BatchSize:    10,
		BatchTimeout: 50 * time.Millisecond,
		MaxRetries:   2,
		RetryBackoff: 5 * time.Millisecond,
	}
}

func TestUsageWorkerAppliesEvents(t *testing.T) {
	cfg := workerTestConfig()
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()
	keys := newFakeKeyUsage()
	spend := newFakeSpend()

	keyID := uuid.New()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &UsageEvent{APIKeyID: keyID, TokensUsed: 1000, Cost: 0.5, Timestamp: time.Now()}))
	require.NoError(t, q.Enqueue(ctx, &UsageEvent{APIKeyID: keyID, TokensUsed: 500, Cost: 0.25, Timestamp: time.Now()}))

	worker := NewUsageWorker(q, dlq, keys, spend, cfg)
	worker.Start()

	assert.Eventually(t, func() bool {
		return keys.total(keyID) > 0.74
	}, 2*time.Second, 10*time.Millisecond)

	worker.Stop()

	assert.InDelta(t, 0.75, keys.total(keyID), 1e-9)
	assert.InDelta(t, 0.75, spend.total(keyID), 1e-9)

	parked, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, parked)
}

func TestUsageWorkerRetriesTransientFailures(t *testing.T) {
	cfg := workerTestConfig()
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()
	keys := newFakeKeyUsage()
	keys.fail = 1
	spend := newFakeSpend()

	keyID := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), &UsageEvent{APIKeyID: keyID, Cost: 1.0}))

	worker := NewUsageWorker(q, dlq, keys, spend, cfg)
	worker.Start()

	assert.Eventually(t, func() bool {
		return keys.total(keyID) > 0.99
	}, 2*time.Second, 10*time.Millisecond)

	worker.Stop()
}

func TestUsageWorkerParksExhaustedEvents(t *testing.T) {
	cfg := workerTestConfig()
	q := queue.NewMemoryQueue(cfg)
	dlq := queue.NewMemoryDeadLetterQueue()
	keys := newFakeKeyUsage()
	keys.fail = 100
	spend := newFakeSpend()

	keyID := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), &UsageEvent{APIKeyID: keyID, Cost: 1.0}))

	worker := NewUsageWorker(q, dlq, keys, spend, cfg)
	worker.Start()

	assert.Eventually(t, func() bool {
		parked, err := dlq.List(context.Background(), 0)
		return err == nil && len(parked) == 1
	}, 2*time.Second, 10*time.Millisecond)

	worker.Stop()

	assert.Zero(t, keys.total(keyID))
	assert.Zero(t, spend.total(keyID))
}
