package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"englishqa/internal/models"
	"englishqa/internal/storage"
	"englishqa/internal/utils"
)

// Ledger applies balance-affecting operations. Every mutation of a user's
// balance goes through here and pairs the balance update with an append-only
// transaction row inside a single database transaction.
type Ledger struct {
	db           *storage.DB
	users        *storage.UserRepository
	transactions *storage.TransactionRepository
	records      *storage.QuestionRecordRepository
	logger       *utils.Logger
}

// NewLedger creates a new ledger
func NewLedger(
	db *storage.DB,
	users *storage.UserRepository,
	transactions *storage.TransactionRepository,
	records *storage.QuestionRecordRepository,
) *Ledger {
	return &Ledger{
		db:           db,
		users:        users,
		transactions: transactions,
		records:      records,
		logger:       utils.NewLogger("ledger"),
	}
}

// ChargeForQuestion debits record.Cost from the user's balance, appends the
// consumption ledger entry and inserts the question record, all in one
// database transaction. If the balance no longer covers the cost the whole
// charge rolls back and an InsufficientBalanceError is returned; the user
// keeps the unchanged balance and no record is written.
func (l *Ledger) ChargeForQuestion(ctx context.Context, record *models.QuestionRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	debited, err := l.users.DebitBalanceTx(ctx, tx, record.UserID, record.Cost)
	if err != nil {
		return err
	}
	if !debited {
		// Balance lookup is for the error message only; the UPDATE already
		// decided the outcome.
		available := 0.0
		if user, lookupErr := l.users.GetByID(ctx, record.UserID); lookupErr == nil {
			available = user.Balance
		}
		return &InsufficientBalanceError{Required: record.Cost, Available: available}
	}

	entry := &models.Transaction{
		UserID:          record.UserID,
		Amount:          -record.Cost,
		TransactionType: models.TransactionTypeConsumption,
		Description:     fmt.Sprintf("answer consumed %d tokens", record.TokensUsed),
	}
	if err := l.transactions.CreateTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := l.records.CreateTx(ctx, tx, record); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit charge: %w", err)
	}

	l.logger.Info("charged question",
		"user_id", record.UserID,
		"tokens", record.TokensUsed,
		"cost", record.Cost,
	)

	return nil
}

// Deposit credits a user's balance and appends the deposit ledger entry.
// Returns the created transaction.
func (l *Ledger) Deposit(ctx context.Context, userID uuid.UUID, amount float64, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := l.users.CreditBalanceTx(ctx, tx, userID, amount); err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		UserID:          userID,
		Amount:          amount,
		TransactionType: models.TransactionTypeDeposit,
		Description:     description,
	}
	if err := l.transactions.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deposit: %w", err)
	}

	l.logger.Info("deposit applied", "user_id", userID, "amount", amount)

	return entry, nil
}
