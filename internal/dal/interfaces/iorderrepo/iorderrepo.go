package iorderrepo

import (
	"context"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/order"
)

// IOrderRepository is an interface for the order repository.
type IOrderRepository interface {
	// Create inserts o. Returns order.ErrDuplicateID if o.ID is taken.
	Create(ctx context.Context, o order.Order) error

	// GetByID returns nil when no order has the id.
	GetByID(ctx context.Context, id string) (*order.Order, error)
}
