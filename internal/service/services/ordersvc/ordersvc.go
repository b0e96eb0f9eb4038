package ordersvc

import (
	"context"

	"github.com/corray333/backend-labs/idempotent-order/internal/clock"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/iidempotencyrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/iledgerrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/uow"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const defaultMaxCreateAttempts = 3

// OrderService is a service for creating and reading orders.
type OrderService struct {
	db                database
	clock             clock.Clock
	newOrderID        func() string
	maxCreateAttempts uint64
	outbox            *OutboxConfig
}

// database is the store handle owned by the caller. Both the Postgres and
// the SQLite clients satisfy it.
type database interface {
	DB() *sqlx.DB
}

func (s *OrderService) newUOW() unitOfWork {
	return uow.NewUnitOfWork(s.db.DB())
}

type unitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	OrderRepository() iorderrepo.IOrderRepository
	LedgerRepository() iledgerrepo.ILedgerRepository
	IdempotencyRepository() iidempotencyrepo.IIdempotencyRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// OutboxConfig describes where order events are published.
type OutboxConfig struct {
	ExchangeName string
	RoutingKey   string
	MaxRetries   int
}

// Option is a function that configures the OrderService.
type Option func(*OrderService)

// MustNewOrderService creates a new OrderService.
// Panics if no database is configured.
func MustNewOrderService(opts ...Option) *OrderService {
	s := &OrderService{
		clock:             clock.NewSystem(),
		newOrderID:        uuid.NewString,
		maxCreateAttempts: defaultMaxCreateAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.db == nil {
		panic("ordersvc: database is required")
	}

	return s
}

// WithDatabase sets the store handle for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDatabase(db database) Option {
	return func(s *OrderService) {
		s.db = db
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(clk clock.Clock) Option {
	return func(s *OrderService) {
		s.clock = clk
	}
}

// WithOrderIDGenerator replaces the random order id generator.
func WithOrderIDGenerator(gen func() string) Option {
	return func(s *OrderService) {
		s.newOrderID = gen
	}
}

// WithMaxCreateAttempts bounds how many order ids are tried when an id
// collides. Values below 1 are ignored.
func WithMaxCreateAttempts(n int) Option {
	return func(s *OrderService) {
		if n >= 1 {
			s.maxCreateAttempts = uint64(n)
		}
	}
}

// WithOutbox enables writing an order.created outbox message in the same
// transaction as every new order.
func WithOutbox(cfg OutboxConfig) Option {
	return func(s *OrderService) {
		s.outbox = &cfg
	}
}

// Ping checks that the store is reachable.
func (s *OrderService) Ping(ctx context.Context) error {
	return s.db.DB().PingContext(ctx)
}
