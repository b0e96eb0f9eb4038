package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/dal/dberr"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/dialect"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/idempotency"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
)

// RecordDal represents idempotency record data access layer model
type RecordDal struct {
	IdempotencyKey string    `db:"idempotency_key"`
	Fingerprint    string    `db:"fingerprint"`
	ResponseBody   string    `db:"response_body"`
	StatusCode     int       `db:"status_code"`
	CreatedAt      time.Time `db:"created_at"`
}

// ToModel converts RecordDal to service layer Record model
func (r *RecordDal) ToModel() *idempotency.Record {
	return &idempotency.Record{
		Key:          r.IdempotencyKey,
		Fingerprint:  r.Fingerprint,
		ResponseBody: []byte(r.ResponseBody),
		StatusCode:   r.StatusCode,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// IdempotencyRepository stores write-once idempotency records.
type IdempotencyRepository struct {
	conn sqlx.ExtContext
}

// NewIdempotencyRepository creates a repository bound to conn.
func NewIdempotencyRepository(conn sqlx.ExtContext) *IdempotencyRepository {
	return &IdempotencyRepository{
		conn: conn,
	}
}

// Get returns the record for key, or nil if the key is unseen.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	ctx, span := otel.Tracer("repository").Start(ctx, "IdempotencyRepository.Get")
	defer span.End()

	query, args, err := dialect.Builder(r.conn).Select(
		"idempotency_key",
		"fingerprint",
		"response_body",
		"status_code",
		"created_at",
	).
		From("idempotency_records").
		Where("idempotency_key = ?", key).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal RecordDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	return dal.ToModel(), nil
}

// Insert stores a new record. The key's uniqueness constraint is the
// arbiter between concurrent first requests: the loser gets
// idempotency.ErrDuplicateKey.
func (r *IdempotencyRepository) Insert(ctx context.Context, rec idempotency.Record) error {
	ctx, span := otel.Tracer("repository").Start(ctx, "IdempotencyRepository.Insert")
	defer span.End()

	query, args, err := dialect.Builder(r.conn).Insert("idempotency_records").
		Columns(
			"idempotency_key",
			"fingerprint",
			"response_body",
			"status_code",
			"created_at",
		).
		Values(
			rec.Key,
			rec.Fingerprint,
			string(rec.ResponseBody),
			rec.StatusCode,
			rec.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		if dberr.IsUniqueViolation(err) {
			return idempotency.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}

	return nil
}
