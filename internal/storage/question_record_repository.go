package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"englishqa/internal/models"
)

// QuestionRecordRepository handles question record database operations.
// Records are immutable once written.
type QuestionRecordRepository struct {
	db *DB
}

// NewQuestionRecordRepository creates a new question record repository
func NewQuestionRecordRepository(db *DB) *QuestionRecordRepository {
	return &QuestionRecordRepository{db: db}
}

const questionRecordColumns = `id, user_id, question, answer, tokens_used, cost, api_key_id, created_at`

// CreateTx inserts a question record inside tx
func (r *QuestionRecordRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, record *models.QuestionRecord) error {
	query := `
		INSERT INTO question_records (id, user_id, question, answer, tokens_used, cost, api_key_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	err := tx.QueryRowxContext(
		ctx, query,
		record.ID, record.UserID, record.Question, record.Answer,
		record.TokensUsed, record.Cost, record.APIKeyID,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create question record: %w", err)
	}

	return nil
}

// ListByUser returns a user's question records, newest first
func (r *QuestionRecordRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.QuestionRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM question_records
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, questionRecordColumns)

	var records []*models.QuestionRecord
	if err := r.db.conn.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list question records: %w", err)
	}

	return records, nil
}

// GetByIDForUser retrieves a record by id, scoped to its owner. A record
// owned by another user is reported as not found, not as forbidden.
func (r *QuestionRecordRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.QuestionRecord, error) {
	var record models.QuestionRecord
	query := fmt.Sprintf(`
		SELECT %s
		FROM question_records
		WHERE id = $1 AND user_id = $2
	`, questionRecordColumns)

	err := r.db.conn.GetContext(ctx, &record, query, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrQuestionRecordNotFound
		}
		return nil, fmt.Errorf("failed to get question record: %w", err)
	}

	return &record, nil
}
