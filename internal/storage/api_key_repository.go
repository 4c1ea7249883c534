package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"englishqa/internal/models"
)

// activeKeysCacheKey is the cache entry holding the decrypted active key set.
const activeKeysCacheKey = "api_keys:active"

// APIKeyRepository handles provider key database operations. Secrets are
// encrypted before they hit the database and decrypted on the way out; the
// decrypted active set is cached briefly so every question does not pay for
// a query plus an AES open.
type APIKeyRepository struct {
	db         *DB
	encryption *Encryption
}

// NewAPIKeyRepository creates a new provider key repository
func NewAPIKeyRepository(db *DB, encryption *Encryption) *APIKeyRepository {
	return &APIKeyRepository{db: db, encryption: encryption}
}

const apiKeyColumns = `id, key_name, encrypted_secret, provider, balance, is_active, priority, created_at, updated_at`

// Create inserts a new provider key, encrypting its secret
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	encrypted, err := r.encryption.EncryptString(key.Secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}
	key.EncryptedSecret = encrypted

	query := `
		INSERT INTO api_keys (id, key_name, encrypted_secret, provider, balance, is_active, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}

	err = r.db.conn.QueryRowxContext(
		ctx, query,
		key.ID, key.KeyName, key.EncryptedSecret, key.Provider,
		key.Balance, key.IsActive, key.Priority,
	).Scan(&key.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	r.db.apiKeyCache.Delete(activeKeysCacheKey)
	return nil
}

// GetByID retrieves a provider key by ID with its secret decrypted
func (r *APIKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	var key models.APIKey
	query := fmt.Sprintf(`SELECT %s FROM api_keys WHERE id = $1`, apiKeyColumns)

	err := r.db.conn.GetContext(ctx, &key, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	if err := r.decrypt(&key); err != nil {
		return nil, err
	}

	return &key, nil
}

// List returns all provider keys ordered by priority. Secrets stay encrypted;
// the admin surface never needs them back.
func (r *APIKeyRepository) List(ctx context.Context) ([]*models.APIKey, error) {
	query := fmt.Sprintf(`SELECT %s FROM api_keys ORDER BY priority, created_at`, apiKeyColumns)

	var keys []*models.APIKey
	if err := r.db.conn.SelectContext(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	return keys, nil
}

// ListActive returns the active provider keys with decrypted secrets,
// ordered by priority then insertion time so selection is deterministic.
// Results are cached for the configured TTL.
func (r *APIKeyRepository) ListActive(ctx context.Context) ([]models.APIKey, error) {
	if cached, ok := r.db.apiKeyCache.Get(activeKeysCacheKey); ok {
		return cached.([]models.APIKey), nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM api_keys
		WHERE is_active = true
		ORDER BY priority, created_at
	`, apiKeyColumns)

	var keys []models.APIKey
	if err := r.db.conn.SelectContext(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("failed to list active API keys: %w", err)
	}

	for i := range keys {
		if err := r.decrypt(&keys[i]); err != nil {
			return nil, err
		}
	}

	r.db.apiKeyCache.Set(activeKeysCacheKey, keys)
	return keys, nil
}

// Update updates a provider key. A non-empty Secret is re-encrypted;
// otherwise the stored secret is left untouched.
func (r *APIKeyRepository) Update(ctx context.Context, key *models.APIKey) error {
	if key.Secret != "" {
		encrypted, err := r.encryption.EncryptString(key.Secret)
		if err != nil {
			return fmt.Errorf("failed to encrypt secret: %w", err)
		}
		key.EncryptedSecret = encrypted
	}

	query := `
		UPDATE api_keys
		SET key_name = $2, encrypted_secret = $3, provider = $4,
		    balance = $5, is_active = $6, priority = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.conn.QueryRowxContext(
		ctx, query,
		key.ID, key.KeyName, key.EncryptedSecret, key.Provider,
		key.Balance, key.IsActive, key.Priority,
	).Scan(&key.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("failed to update API key: %w", err)
	}

	r.db.apiKeyCache.Delete(activeKeysCacheKey)
	return nil
}

// Delete removes a provider key
func (r *APIKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.conn.ExecContext(ctx, "DELETE FROM api_keys WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAPIKeyNotFound
	}

	r.db.apiKeyCache.Delete(activeKeysCacheKey)
	return nil
}

// AddUsage subtracts cost from the key's quota balance. This is bookkeeping
// for operators; user debits never read this column.
func (r *APIKeyRepository) AddUsage(ctx context.Context, id uuid.UUID, cost float64) error {
	query := `UPDATE api_keys SET balance = balance - $2, updated_at = now() WHERE id = $1`

	result, err := r.db.conn.ExecContext(ctx, query, id, cost)
	if err != nil {
		return fmt.Errorf("failed to record key usage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

func (r *APIKeyRepository) decrypt(key *models.APIKey) error {
	secret, err := r.encryption.DecryptString(key.EncryptedSecret)
	if err != nil {
		return fmt.Errorf("failed to decrypt secret for key %s: %w", key.ID, err)
	}
	key.Secret = secret
	return nil
}
