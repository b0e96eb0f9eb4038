package iledgerrepo

import (
	"context"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/ledger"
)

// ILedgerRepository defines the append-only ledger operations.
type ILedgerRepository interface {
	// Append stores a new entry and returns it with its assigned ID.
	Append(ctx context.Context, entry ledger.Entry) (ledger.Entry, error)

	// ListByOrderID returns the entries of an order, oldest first.
	ListByOrderID(ctx context.Context, orderID string) ([]ledger.Entry, error)
}
