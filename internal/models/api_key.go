package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is an upstream provider credential. The secret is stored AES-GCM
// encrypted; Secret holds the decrypted value only while a request is being
// served. Balance tracks the remaining quota reported for the key and is
// bookkeeping only; user debits never consult it.
type APIKey struct {
	ID              uuid.UUID  `db:"id"`
	KeyName         string     `db:"key_name"`
	EncryptedSecret []byte     `db:"encrypted_secret"`
	Provider        string     `db:"provider"`
	Balance         float64    `db:"balance"`
	IsActive        bool       `db:"is_active"`
	Priority        int        `db:"priority"` // lower = preferred
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at"`

	Secret string `db:"-"`
}

// APIKeyResponse is the admin-facing view of a provider key. The secret is
// write-only: it is never returned once stored.
type APIKeyResponse struct {
	ID        string  `json:"id"`
	KeyName   string  `json:"key_name"`
	Provider  string  `json:"provider"`
	Balance   float64 `json:"balance"`
	IsActive  bool    `json:"is_active"`
	Priority  int     `json:"priority"`
	CreatedAt string  `json:"created_at"`
}

// ToResponse converts an APIKey row into its admin representation.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID.String(),
		KeyName:   k.KeyName,
		Provider:  k.Provider,
		Balance:   k.Balance,
		IsActive:  k.IsActive,
		Priority:  k.Priority,
		CreatedAt: k.CreatedAt.Format(time.RFC3339),
	}
}
