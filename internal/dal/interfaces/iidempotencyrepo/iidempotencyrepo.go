package iidempotencyrepo

import (
	"context"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/idempotency"
)

// IIdempotencyRepository stores write-once idempotency records.
type IIdempotencyRepository interface {
	// Get returns nil when the key has never been recorded.
	Get(ctx context.Context, key string) (*idempotency.Record, error)

	// Insert stores rec. Returns idempotency.ErrDuplicateKey if the key exists;
	// existing records are never overwritten.
	Insert(ctx context.Context, rec idempotency.Record) error
}
