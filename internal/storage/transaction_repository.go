package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"englishqa/internal/models"
)

// TransactionRepository handles ledger entry database operations.
// The transactions table is append-only; there are no update or delete paths.
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateTx appends a ledger entry inside tx
func (r *TransactionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	err := tx.QueryRowxContext(
		ctx, query,
		t.ID, t.UserID, t.Amount, t.TransactionType, t.Description,
	).Scan(&t.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListByUser returns a user's ledger entries, newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, transaction_type, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var transactions []*models.Transaction
	if err := r.db.conn.SelectContext(ctx, &transactions, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, nil
}
