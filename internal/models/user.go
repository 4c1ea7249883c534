package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Balance is mutated only by the
// billing ledger; users are deactivated, never hard-deleted.
type User struct {
	ID           uuid.UUID  `db:"id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"` // bcrypt hash
	Balance      float64    `db:"balance"`
	IsActive     bool       `db:"is_active"`
	IsAdmin      bool       `db:"is_admin"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at"`
}

// CanAsk reports whether the account may start a question at all.
// This is the coarse gate; the real sufficiency check happens after the
// provider call, once the actual cost is known.
func (u *User) CanAsk() bool {
	return u.IsActive && u.Balance > 0
}

// UserResponse is the public view of a user (no password hash).
type UserResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Balance   float64 `json:"balance"`
	IsActive  bool    `json:"is_active"`
	IsAdmin   bool    `json:"is_admin"`
	CreatedAt string  `json:"created_at"`
}

// ToResponse converts a User row into its public representation.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Balance:   u.Balance,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}
