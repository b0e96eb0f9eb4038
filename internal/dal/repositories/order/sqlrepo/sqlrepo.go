package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/dal/dberr"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/dialect"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/order"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
)

// OrderDal represents order data access layer model
type OrderDal struct {
	OrderID        string    `db:"order_id"`
	CustomerID     string    `db:"customer_id"`
	ItemID         string    `db:"item_id"`
	Quantity       int       `db:"quantity"`
	Status         string    `db:"status"`
	IdempotencyKey string    `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

// ToModel converts OrderDal to service layer Order model
func (o *OrderDal) ToModel() *order.Order {
	return &order.Order{
		ID:             o.OrderID,
		CustomerID:     o.CustomerID,
		ItemID:         o.ItemID,
		Quantity:       o.Quantity,
		Status:         order.Status(o.Status),
		IdempotencyKey: o.IdempotencyKey,
		CreatedAt:      o.CreatedAt.UTC(),
	}
}

// OrderRepository stores orders in Postgres or SQLite.
type OrderRepository struct {
	conn sqlx.ExtContext
}

// NewOrderRepository creates a repository bound to conn, which may be a
// database handle or a transaction.
func NewOrderRepository(conn sqlx.ExtContext) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o order.Order) error {
	ctx, span := otel.Tracer("repository").Start(ctx, "OrderRepository.Create")
	defer span.End()

	query, args, err := dialect.Builder(r.conn).Insert("orders").
		Columns(
			"order_id",
			"customer_id",
			"item_id",
			"quantity",
			"status",
			"idempotency_key",
			"created_at",
		).
		Values(
			o.ID,
			o.CustomerID,
			o.ItemID,
			o.Quantity,
			o.Status.String(),
			o.IdempotencyKey,
			o.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		if dberr.IsUniqueViolation(err) {
			return order.ErrDuplicateID
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetByID returns the order with the given id, or nil if there is none.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	ctx, span := otel.Tracer("repository").Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	query, args, err := dialect.Builder(r.conn).Select(
		"order_id",
		"customer_id",
		"item_id",
		"quantity",
		"status",
		"idempotency_key",
		"created_at",
	).
		From("orders").
		Where("order_id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal OrderDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return dal.ToModel(), nil
}
