package ledger

import "time"

// Entry is an append-only record of a quantity movement for an order.
type Entry struct {
	ID         int64
	OrderID    string
	CustomerID string
	Quantity   int
	CreatedAt  time.Time
}
