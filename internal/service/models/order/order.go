package order

import (
	"errors"
	"time"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusCreated Status = "created"
)

func (s Status) String() string {
	return string(s)
}

// ErrDuplicateID is returned by storage when an order id is already taken.
var ErrDuplicateID = errors.New("order id already exists")

// Order represents an order in the system.
type Order struct {
	ID             string
	CustomerID     string
	ItemID         string
	Quantity       int
	Status         Status
	IdempotencyKey string
	CreatedAt      time.Time
}

// CreateRequest is a validated order creation payload.
type CreateRequest struct {
	CustomerID string
	ItemID     string
	Quantity   int
}

// Payload returns the request as the field map that gets fingerprinted.
// Keys match the wire names of the create order body.
func (r CreateRequest) Payload() map[string]any {
	return map[string]any{
		"customerId": r.CustomerID,
		"itemId":     r.ItemID,
		"quantity":   r.Quantity,
	}
}

// CreatedResponse is the body returned, and cached, for a created order.
type CreatedResponse struct {
	OrderID string `json:"orderId"`
	Status  Status `json:"status"`
}

// CreatedEvent is published once per created order.
type CreatedEvent struct {
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	ItemID     string    `json:"itemId"`
	Quantity   int       `json:"quantity"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewCreatedEvent builds the event for o.
func NewCreatedEvent(o Order) CreatedEvent {
	return CreatedEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		ItemID:     o.ItemID,
		Quantity:   o.Quantity,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
	}
}
