package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/dal/postgres"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const testDBLockID int64 = 801234568

// NewSQLite opens a fresh, migrated SQLite database under t.TempDir().
func NewSQLite(t *testing.T) *sqlite.Client {
	t.Helper()

	client, err := sqlite.NewClient(context.Background(), filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// NewPostgres connects to TEST_DATABASE_URL, applies migrations and empties
// all tables. The test is skipped when the variable is unset or the server
// is unreachable. Tests using it are serialized with an advisory lock.
func NewPostgres(t *testing.T) *postgres.Client {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := postgres.NewClient(ctx, dsn)
	if err != nil {
		t.Skipf("skipping Postgres integration test: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	lockTestDB(t, client)

	_, err = client.DB().ExecContext(ctx, `TRUNCATE ledger, orders, idempotency_records, outbox RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return client
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))

	return n
}

func lockTestDB(t *testing.T, client *postgres.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := client.Pool().Acquire(ctx)
	require.NoError(t, err)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, testDBLockID); err != nil {
		conn.Release()
		t.Fatalf("acquire test lock: %v", err)
	}

	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, testDBLockID)
		conn.Release()
	})
}
