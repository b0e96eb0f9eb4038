package uow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/idempotency"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/ledger"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/order"
	"github.com/corray333/backend-labs/idempotent-order/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newOrder(id, key string) order.Order {
	return order.Order{
		ID:             id,
		CustomerID:     "cust-1",
		ItemID:         "item-1",
		Quantity:       4,
		Status:         order.StatusCreated,
		IdempotencyKey: key,
		CreatedAt:      now,
	}
}

func TestDo_CommitsAllWrites(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()

	work := NewUnitOfWork(db.DB())
	err := work.Do(ctx, func(ctx context.Context) error {
		if err := work.IdempotencyRepository().Insert(ctx, idempotency.Record{
			Key: "k", Fingerprint: "fp", ResponseBody: []byte(`{"orderId":"o-1"}`), StatusCode: 201, CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := work.OrderRepository().Create(ctx, newOrder("o-1", "k")); err != nil {
			return err
		}
		_, err := work.LedgerRepository().Append(ctx, ledger.Entry{OrderID: "o-1", CustomerID: "cust-1", Quantity: 4, CreatedAt: now})
		return err
	})
	require.NoError(t, err)

	read := NewUnitOfWork(db.DB())

	rec, err := read.IdempotencyRepository().Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "fp", rec.Fingerprint)
	assert.Equal(t, `{"orderId":"o-1"}`, string(rec.ResponseBody))
	assert.Equal(t, 201, rec.StatusCode)
	assert.True(t, now.Equal(rec.CreatedAt))

	o, err := read.OrderRepository().GetByID(ctx, "o-1")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.True(t, now.Equal(o.CreatedAt))
	o.CreatedAt = now
	assert.Equal(t, newOrder("o-1", "k"), *o)

	entries, err := read.LedgerRepository().ListByOrderID(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotZero(t, entries[0].ID)
}

func TestDo_RollsBackOnError(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	boom := errors.New("boom")

	work := NewUnitOfWork(db.DB())
	err := work.Do(ctx, func(ctx context.Context) error {
		if err := work.OrderRepository().Create(ctx, newOrder("o-1", "k")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 0, testutil.CountRows(t, db.DB(), "orders"))
}

func TestDo_RollsBackOnPanic(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()

	work := NewUnitOfWork(db.DB())
	assert.Panics(t, func() {
		_ = work.Do(ctx, func(ctx context.Context) error {
			if err := work.OrderRepository().Create(ctx, newOrder("o-1", "k")); err != nil {
				return err
			}
			panic("unexpected")
		})
	})

	assert.Equal(t, 0, testutil.CountRows(t, db.DB(), "orders"))
}

func TestDo_IsSingleUse(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()

	work := NewUnitOfWork(db.DB())
	require.NoError(t, work.Do(ctx, func(context.Context) error { return nil }))

	err := work.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestRepositories_MapUniqueViolations(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	work := NewUnitOfWork(db.DB())

	rec := idempotency.Record{Key: "k", Fingerprint: "fp", ResponseBody: []byte(`{}`), StatusCode: 201, CreatedAt: now}
	require.NoError(t, work.IdempotencyRepository().Insert(ctx, rec))

	rec.Fingerprint = "other"
	assert.ErrorIs(t, work.IdempotencyRepository().Insert(ctx, rec), idempotency.ErrDuplicateKey)

	stored, err := work.IdempotencyRepository().Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "fp", stored.Fingerprint)

	require.NoError(t, work.OrderRepository().Create(ctx, newOrder("o-1", "k1")))
	assert.ErrorIs(t, work.OrderRepository().Create(ctx, newOrder("o-1", "k2")), order.ErrDuplicateID)
}

func TestRepositories_MissingRowsAreNil(t *testing.T) {
	db := testutil.NewSQLite(t)
	ctx := context.Background()
	work := NewUnitOfWork(db.DB())

	rec, err := work.IdempotencyRepository().Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, rec)

	o, err := work.OrderRepository().GetByID(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, o)

	entries, err := work.LedgerRepository().ListByOrderID(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedger_RejectsUnknownOrder(t *testing.T) {
	db := testutil.NewSQLite(t)

	_, err := NewUnitOfWork(db.DB()).LedgerRepository().Append(context.Background(), ledger.Entry{
		OrderID: "missing", CustomerID: "c", Quantity: 1, CreatedAt: now,
	})
	assert.Error(t, err)
}
