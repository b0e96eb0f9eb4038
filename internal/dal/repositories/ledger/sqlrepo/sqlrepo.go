package sqlrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/dal/dialect"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/ledger"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
)

// EntryDal represents ledger entry data access layer model
type EntryDal struct {
	LedgerID   int64     `db:"ledger_id"`
	OrderID    string    `db:"order_id"`
	CustomerID string    `db:"customer_id"`
	Quantity   int       `db:"quantity"`
	CreatedAt  time.Time `db:"created_at"`
}

// ToModel converts EntryDal to service layer Entry model
func (e *EntryDal) ToModel() ledger.Entry {
	return ledger.Entry{
		ID:         e.LedgerID,
		OrderID:    e.OrderID,
		CustomerID: e.CustomerID,
		Quantity:   e.Quantity,
		CreatedAt:  e.CreatedAt.UTC(),
	}
}

// LedgerRepository is the append-only ledger store. Entries are never
// updated or deleted.
type LedgerRepository struct {
	conn sqlx.ExtContext
}

// NewLedgerRepository creates a repository bound to conn.
func NewLedgerRepository(conn sqlx.ExtContext) *LedgerRepository {
	return &LedgerRepository{
		conn: conn,
	}
}

// Append inserts entry and returns it with the generated ID.
func (r *LedgerRepository) Append(ctx context.Context, entry ledger.Entry) (ledger.Entry, error) {
	ctx, span := otel.Tracer("repository").Start(ctx, "LedgerRepository.Append")
	defer span.End()

	query, args, err := dialect.Builder(r.conn).Insert("ledger").
		Columns("order_id", "customer_id", "quantity", "created_at").
		Values(entry.OrderID, entry.CustomerID, entry.Quantity, entry.CreatedAt).
		Suffix("RETURNING ledger_id").
		ToSql()
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRowxContext(ctx, query, args...).Scan(&entry.ID); err != nil {
		return ledger.Entry{}, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return entry, nil
}

// ListByOrderID returns all entries of an order ordered by ID.
func (r *LedgerRepository) ListByOrderID(ctx context.Context, orderID string) ([]ledger.Entry, error) {
	ctx, span := otel.Tracer("repository").Start(ctx, "LedgerRepository.ListByOrderID")
	defer span.End()

	query, args, err := dialect.Builder(r.conn).Select(
		"ledger_id",
		"order_id",
		"customer_id",
		"quantity",
		"created_at",
	).
		From("ledger").
		Where("order_id = ?", orderID).
		OrderBy("ledger_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var rows []EntryDal
	if err := sqlx.SelectContext(ctx, r.conn, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}

	entries := make([]ledger.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].ToModel())
	}

	return entries, nil
}
