package question

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"englishqa/internal/billing"
	"englishqa/internal/models"
	"englishqa/internal/providers"
)

type fakeSelector struct {
	key *models.APIKey
	err error
}

func (s *fakeSelector) Select(ctx context.Context) (*models.APIKey, error) {
	return s.key, s.err
}

type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	answer *providers.Answer
	err    error
}

func (p *fakeProvider) Ask(ctx context.Context, secret, question string) (*providers.Answer, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.answer, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeCharger mimics the conditional debit: the charge succeeds only while
// the balance covers the cost, and concurrent charges are serialized.
type fakeCharger struct {
	mu      sync.Mutex
	balance float64
	charges []*models.QuestionRecord
}

func (c *fakeCharger) ChargeForQuestion(ctx context.Context, record *models.QuestionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.balance < record.Cost {
		return &billing.InsufficientBalanceError{Required: record.Cost, Available: c.balance}
	}

	c.balance -= record.Cost
	record.ID = uuid.New()
	c.charges = append(c.charges, record)
	return nil
}

type fakeUsageQueue struct {
	mu     sync.Mutex
	events []*billing.UsageEvent
}

func (q *fakeUsageQueue) Enqueue(ctx context.Context, item interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, item.(*billing.UsageEvent))
	return nil
}

func activeUser(balance float64) *models.User {
	return &models.User{ID: uuid.New(), Username: "learner", Balance: balance, IsActive: true}
}

func newTestService(selector Selector, provider providers.Client, charger Charger, usage UsageQueue) *Service {
	return NewService(selector, provider, billing.NewPricer(0.5), charger, usage, nil)
}

func TestAskSuccess(t *testing.T) {
	keyID := uuid.New()
	selector := &fakeSelector{key: &models.APIKey{ID: keyID, Secret: "sk-test", Balance: 100}}
	provider := &fakeProvider{answer: &providers.Answer{Text: "Went.", TokensUsed: 1000}}
	charger := &fakeCharger{balance: 10}
	usage := &fakeUsageQueue{}

	svc := newTestService(selector, provider, charger, usage)

	record, err := svc.Ask(context.Background(), activeUser(10), "Past tense of go?")
	require.NoError(t, err)

	assert.Equal(t, "Went.", record.Answer)
	assert.Equal(t, 1000, record.TokensUsed)
	assert.InDelta(t, 0.5, record.Cost, 1e-9)
	assert.Equal(t, keyID, record.APIKeyID)
	assert.InDelta(t, 9.5, charger.balance, 1e-9)

	require.Len(t, usage.events, 1)
	assert.Equal(t, keyID, usage.events[0].APIKeyID)
	assert.InDelta(t, 0.5, usage.events[0].Cost, 1e-9)
}

func TestAskZeroBalanceSkipsProvider(t *testing.T) {
	provider := &fakeProvider{answer: &providers.Answer{Text: "x", TokensUsed: 10}}
	svc := newTestService(&fakeSelector{}, provider, &fakeCharger{}, nil)

	_, err := svc.Ask(context.Background(), activeUser(0), "hello?")
	assert.True(t, billing.IsInsufficientBalance(err))
	assert.Zero(t, provider.callCount())
}

func TestAskEmptyQuestion(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(&fakeSelector{}, provider, &fakeCharger{}, nil)

	_, err := svc.Ask(context.Background(), activeUser(10), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Zero(t, provider.callCount())
}

func TestAskQuestionTooLong(t *testing.T) {
	svc := newTestService(&fakeSelector{}, &fakeProvider{}, &fakeCharger{}, nil)

	_, err := svc.Ask(context.Background(), activeUser(10), strings.Repeat("a", MaxQuestionLen+1))
	assert.ErrorIs(t, err, ErrQuestionTooLong)
}

func TestAskNoProviderKey(t *testing.T) {
	selector := &fakeSelector{err: providers.ErrNoProviderAvailable}
	provider := &fakeProvider{}
	svc := newTestService(selector, provider, &fakeCharger{}, nil)

	_, err := svc.Ask(context.Background(), activeUser(10), "hello?")
	assert.ErrorIs(t, err, providers.ErrNoProviderAvailable)
	assert.Zero(t, provider.callCount())
}

func TestAskUpstreamFailureDoesNotCharge(t *testing.T) {
	selector := &fakeSelector{key: &models.APIKey{ID: uuid.New(), Secret: "sk-test", Balance: 100}}
	provider := &fakeProvider{err: &providers.UpstreamError{StatusCode: 502, Message: "bad gateway"}}
	charger := &fakeCharger{balance: 10}
	usage := &fakeUsageQueue{}

	svc := newTestService(selector, provider, charger, usage)

	record, err := svc.Ask(context.Background(), activeUser(10), "hello?")
	assert.Nil(t, record)
	assert.True(t, providers.IsUpstream(err))
	assert.InDelta(t, 10.0, charger.balance, 1e-9)
	assert.Empty(t, usage.events)
}

func TestAskPostCallInsufficiency(t *testing.T) {
	selector := &fakeSelector{key: &models.APIKey{ID: uuid.New(), Secret: "sk-test", Balance: 100}}
	// 4000 tokens cost 2.0 but the charger only holds 1.0
	provider := &fakeProvider{answer: &providers.Answer{Text: "long answer", TokensUsed: 4000}}
	charger := &fakeCharger{balance: 1.0}
	usage := &fakeUsageQueue{}

	svc := newTestService(selector, provider, charger, usage)

	// Coarse gate passes; the charge itself refuses
	record, err := svc.Ask(context.Background(), activeUser(1.0), "hello?")
	assert.Nil(t, record)
	assert.True(t, billing.IsInsufficientBalance(err))
	assert.InDelta(t, 1.0, charger.balance, 1e-9)
	assert.Empty(t, usage.events)
}

func TestAskConcurrentChargesNeverOverdraw(t *testing.T) {
	selector := &fakeSelector{key: &models.APIKey{ID: uuid.New(), Secret: "sk-test", Balance: 100}}
	// Each answer costs 0.75; a 1.0 balance affords exactly one
	provider := &fakeProvider{answer: &providers.Answer{Text: "x", TokensUsed: 1500}}
	charger := &fakeCharger{balance: 1.0}

	svc := newTestService(selector, provider, charger, &fakeUsageQueue{})
	user := activeUser(1.0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Ask(context.Background(), user, "hello?")
		}(i)
	}
	wg.Wait()

	successes := 0
	insufficient := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if billing.IsInsufficientBalance(err) {
			insufficient++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)
	assert.InDelta(t, 0.25, charger.balance, 1e-9)
	assert.Len(t, charger.charges, 1)
}
