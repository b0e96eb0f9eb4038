package ordersvc

import (
	"context"
	"log/slog"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/apperr"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/ledger"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/order"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// GetOrder returns the committed order with the given id.
// Returns apperr.ErrOrderNotFound if there is none.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	o, err := s.newUOW().OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to get order", "order_id", orderID, "error", err)
		return nil, apperr.Internal(err)
	}
	if o == nil {
		return nil, apperr.ErrOrderNotFound
	}

	return o, nil
}

// ListLedgerEntries returns the ledger entries of an order, oldest first.
func (s *OrderService) ListLedgerEntries(ctx context.Context, orderID string) ([]ledger.Entry, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ListLedgerEntries")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	entries, err := s.newUOW().LedgerRepository().ListByOrderID(ctx, orderID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list ledger entries", "order_id", orderID, "error", err)
		return nil, apperr.Internal(err)
	}

	return entries, nil
}
