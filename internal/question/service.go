package question

import (
	"context"
	"strings"
	"time"

	"englishqa/internal/billing"
	"englishqa/internal/logging"
	"englishqa/internal/models"
	"englishqa/internal/providers"
	"englishqa/internal/utils"
)

// Selector picks the provider key for the next request
type Selector interface {
	Select(ctx context.Context) (*models.APIKey, error)
}

// Charger atomically debits the user and persists the question record
type Charger interface {
	ChargeForQuestion(ctx context.Context, record *models.QuestionRecord) error
}

// UsageQueue receives provider key usage events
type UsageQueue interface {
	Enqueue(ctx context.Context, item interface{}) error
}

// Service runs the question pipeline: admission checks, provider key
// selection, the upstream call, pricing and the atomic charge. The provider
// is called before any money moves, so a failed upstream call costs the
// user nothing; the debit itself decides affordability at commit time.
type Service struct {
	selector Selector
	provider providers.Client
	pricer   *billing.Pricer
	charger  Charger
	usage    UsageQueue
	sink     logging.Sink
	logger   *utils.Logger
}

// NewService creates a new question service
func NewService(
	selector Selector,
	provider providers.Client,
	pricer *billing.Pricer,
	charger Charger,
	usage UsageQueue,
	sink logging.Sink,
) *Service {
	if sink == nil {
		sink = logging.NewNoopSink()
	}

	return &Service{
		selector: selector,
		provider: provider,
		pricer:   pricer,
		charger:  charger,
		usage:    usage,
		sink:     sink,
		logger:   utils.NewLogger("question"),
	}
}

// Ask answers one question for the user. Returns the persisted record on
// success. Error cases map to the caller's HTTP taxonomy: validation
// errors, InsufficientBalanceError, ErrNoProviderAvailable and
// UpstreamError.
func (s *Service) Ask(ctx context.Context, user *models.User, text string) (*models.QuestionRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	if len(text) > MaxQuestionLen {
		return nil, ErrQuestionTooLong
	}

	// Coarse admission gate. The real affordability decision happens in
	// the charge, after the actual cost is known.
	if !user.CanAsk() {
		return nil, &billing.InsufficientBalanceError{Available: user.Balance}
	}

	key, err := s.selector.Select(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	answer, err := s.provider.Ask(ctx, key.Secret, text)
	providerMs := time.Since(started).Milliseconds()

	if err != nil {
		s.logger.Warn("provider call failed", "api_key_id", key.ID, "error", err)
		s.sink.Enqueue(&logging.Exchange{
			Timestamp:  time.Now(),
			UserID:     user.ID.String(),
			Question:   text,
			APIKeyID:   key.ID.String(),
			ProviderMs: providerMs,
			Error:      err.Error(),
		})
		return nil, err
	}

	cost := s.pricer.CostForTokens(answer.TokensUsed)

	record := &models.QuestionRecord{
		UserID:     user.ID,
		Question:   text,
		Answer:     answer.Text,
		TokensUsed: answer.TokensUsed,
		Cost:       cost,
		APIKeyID:   key.ID,
	}

	if err := s.charger.ChargeForQuestion(ctx, record); err != nil {
		return nil, err
	}

	// Key quota accounting is asynchronous and best effort; a lost event
	// never affects the already committed user charge.
	if s.usage != nil {
		event := &billing.UsageEvent{
			APIKeyID:   key.ID,
			TokensUsed: answer.TokensUsed,
			Cost:       cost,
			Timestamp:  time.Now(),
		}
		if err := s.usage.Enqueue(ctx, event); err != nil {
			s.logger.Error("failed to enqueue usage event", "api_key_id", key.ID, "error", err)
		}
	}

	s.sink.Enqueue(&logging.Exchange{
		Timestamp:  time.Now(),
		UserID:     user.ID.String(),
		RecordID:   record.ID.String(),
		Question:   text,
		Answer:     answer.Text,
		TokensUsed: answer.TokensUsed,
		Cost:       cost,
		APIKeyID:   key.ID.String(),
		ProviderMs: providerMs,
	})

	return record, nil
}
