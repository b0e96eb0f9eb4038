package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/iidempotencyrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/iledgerrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/interfaces/ioutboxrepo"
	idempotencyrepo "github.com/corray333/backend-labs/idempotent-order/internal/dal/repositories/idempotency/sqlrepo"
	ledgerrepo "github.com/corray333/backend-labs/idempotent-order/internal/dal/repositories/ledger/sqlrepo"
	orderrepo "github.com/corray333/backend-labs/idempotent-order/internal/dal/repositories/order/sqlrepo"
	outboxrepo "github.com/corray333/backend-labs/idempotent-order/internal/dal/repositories/outbox/sqlrepo"
	"github.com/jmoiron/sqlx"
)

// ErrAlreadyStarted is returned by Begin on a unit of work that already
// holds a transaction.
var ErrAlreadyStarted = errors.New("unit of work already started")

// UnitOfWork groups repositories so that they share one transaction.
// Before Begin the repositories run directly against the database.
// A UnitOfWork is single use.
type UnitOfWork struct {
	db              *sqlx.DB
	tx              *sqlx.Tx
	orderRepo       iorderrepo.IOrderRepository
	ledgerRepo      iledgerrepo.ILedgerRepository
	idempotencyRepo iidempotencyrepo.IIdempotencyRepository
	outboxRepo      ioutboxrepo.IOutboxRepository
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) LedgerRepository() iledgerrepo.ILedgerRepository {
	return u.ledgerRepo
}

func (u *UnitOfWork) IdempotencyRepository() iidempotencyrepo.IIdempotencyRepository {
	return u.idempotencyRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	u := &UnitOfWork{db: db}
	u.bind(db)

	return u
}

func (u *UnitOfWork) bind(conn sqlx.ExtContext) {
	u.orderRepo = orderrepo.NewOrderRepository(conn)
	u.ledgerRepo = ledgerrepo.NewLedgerRepository(conn)
	u.idempotencyRepo = idempotencyrepo.NewIdempotencyRepository(conn)
	u.outboxRepo = outboxrepo.NewOutboxRepository(conn)
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrAlreadyStarted
	}

	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit()
}

func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback()
}

// Do runs fn in a transaction. If fn returns an error or panics, or the
// commit fails, nothing fn wrote is persisted. fn's error is returned as is.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := u.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := u.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", err)
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}

	if err := u.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return nil
}
