package outbox

import (
	"time"
)

// OutboxMessage is an event waiting to be published to RabbitMQ.
// It is written in the same transaction as the change it describes.
type OutboxMessage struct {
	ID           int64
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
