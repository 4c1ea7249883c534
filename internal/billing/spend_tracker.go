package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SpendTracker keeps a running monthly spend figure per provider key in
// Redis. The figures are advisory, used for operator dashboards and quota
// alerts; the authoritative billing state lives in Postgres.
type SpendTracker struct {
	client *redis.Client
}

// NewSpendTracker creates a new spend tracker
func NewSpendTracker(client *redis.Client) *SpendTracker {
	return &SpendTracker{client: client}
}

// AddSpend adds amount to the current month's spend counter for a key
func (t *SpendTracker) AddSpend(ctx context.Context, keyID uuid.UUID, amount float64) error {
	key := t.monthKey(keyID, time.Now())

	pipe := t.client.Pipeline()
	pipe.IncrByFloat(ctx, key, amount)
	// Counters expire well after the month rolls over
	pipe.Expire(ctx, key, 40*24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record spend: %w", err)
	}

	return nil
}

// MonthlySpend returns the current month's spend for a key. A key with no
// recorded spend reports zero.
func (t *SpendTracker) MonthlySpend(ctx context.Context, keyID uuid.UUID) (float64, error) {
	spend, err := t.client.Get(ctx, t.monthKey(keyID, time.Now())).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get spend: %w", err)
	}
	return spend, nil
}

func (t *SpendTracker) monthKey(keyID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("spend:%s:%s", keyID, at.Format("2006-01"))
}
