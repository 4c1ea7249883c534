package httpapi

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"englishqa/internal/storage"
)

// skipIfNoDatabase skips tests that need a real PostgreSQL instance.
// Point TEST_DATABASE_URL at a database with the schema loaded to run them.
func skipIfNoDatabase(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}
}

func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()

	cfg := storage.DefaultDBConfig()
	cfg.URL = os.Getenv("TEST_DATABASE_URL")

	db, err := storage.NewDB(cfg)
	require.NoError(t, err)
	return db
}

func cleanupTestUser(t *testing.T, db *storage.DB, username string) {
	t.Helper()

	_, err := db.Conn().Exec(`
		DELETE FROM transactions WHERE user_id IN (SELECT id FROM users WHERE username = $1)
	`, username)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`
		DELETE FROM question_records WHERE user_id IN (SELECT id FROM users WHERE username = $1)
	`, username)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`DELETE FROM users WHERE username = $1`, username)
	require.NoError(t, err)
}
