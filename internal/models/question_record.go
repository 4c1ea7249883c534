package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionRecord is the immutable result of one question/answer exchange.
// Its cost is debited exactly once, in the same database transaction that
// inserts the row.
type QuestionRecord struct {
	ID         uuid.UUID `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	Question   string    `db:"question"`
	Answer     string    `db:"answer"`
	TokensUsed int       `db:"tokens_used"`
	Cost       float64   `db:"cost"`
	APIKeyID   uuid.UUID `db:"api_key_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// QuestionRecordResponse is the JSON view returned to the asking user.
// The provider key reference stays internal.
type QuestionRecordResponse struct {
	ID         string  `json:"id"`
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`
	CreatedAt  string  `json:"created_at"`
}

// ToResponse converts a QuestionRecord row into its JSON representation.
func (r *QuestionRecord) ToResponse() QuestionRecordResponse {
	return QuestionRecordResponse{
		ID:         r.ID.String(),
		Question:   r.Question,
		Answer:     r.Answer,
		TokensUsed: r.TokensUsed,
		Cost:       r.Cost,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
}
