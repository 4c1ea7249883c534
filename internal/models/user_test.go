package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanAsk(t *testing.T) {
	tests := []struct {
		name     string
		balance  float64
		isActive bool
		want     bool
	}{
		{"active with balance", 1.0, true, true},
		{"active with tiny balance", 0.0001, true, true},
		{"active with zero balance", 0, true, false},
		{"active with negative balance", -1, true, false},
		{"inactive with balance", 10, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{Balance: tt.balance, IsActive: tt.isActive}
			assert.Equal(t, tt.want, user.CanAsk())
		})
	}
}

func TestUserResponseOmitsPasswordHash(t *testing.T) {
	user := &User{
		ID:           uuid.New(),
		Username:     "learner",
		Email:        "learner@example.com",
		PasswordHash: "$2a$10$secret",
		Balance:      5,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	data, err := json.Marshal(user.ToResponse())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "learner")
}

func TestAPIKeyResponseOmitsSecret(t *testing.T) {
	key := &APIKey{
		ID:              uuid.New(),
		KeyName:         "primary",
		Provider:        "doubao",
		Secret:          "sk-plaintext",
		EncryptedSecret: []byte{0x01, 0x02},
		CreatedAt:       time.Now(),
	}

	data, err := json.Marshal(key.ToResponse())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-plaintext")
	assert.NotContains(t, string(data), "encrypted")
}

func TestQuestionRecordResponseOmitsKeyReference(t *testing.T) {
	record := &QuestionRecord{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Question:  "What is a gerund?",
		Answer:    "A verb form used as a noun.",
		APIKeyID:  uuid.New(),
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(record.ToResponse())
	require.NoError(t, err)
	assert.NotContains(t, string(data), record.APIKeyID.String())
	assert.NotContains(t, string(data), record.UserID.String())
}
