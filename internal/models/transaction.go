package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates balance-affecting event kinds.
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeConsumption TransactionType = "consumption"
)

// Transaction is an append-only ledger entry. Deposits carry a positive
// amount, consumption entries a negative one. Rows are never updated.
type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	Amount          float64         `db:"amount"`
	TransactionType TransactionType `db:"transaction_type"`
	Description     string          `db:"description"`
	CreatedAt       time.Time       `db:"created_at"`
}

// TransactionResponse is the JSON view of a ledger entry.
type TransactionResponse struct {
	ID              string  `json:"id"`
	Amount          float64 `json:"amount"`
	TransactionType string  `json:"transaction_type"`
	Description     string  `json:"description,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// ToResponse converts a Transaction row into its JSON representation.
func (t *Transaction) ToResponse() TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		Amount:          t.Amount,
		TransactionType: string(t.TransactionType),
		Description:     t.Description,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
}
