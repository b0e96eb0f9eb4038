package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/apperr"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/fingerprint"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/idempotency"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/ledger"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/order"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/outbox"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CreateOrderInput is a create order call as received from the transport.
type CreateOrderInput struct {
	IdempotencyKey string
	Request        order.CreateRequest

	// FailAfterCommit makes the call report ErrSimulatedFailure after the
	// order has been durably committed. The commit itself is unaffected.
	FailAfterCommit bool
}

// Outcome is the response to send for a create order call. Replayed
// outcomes carry the status and body cached by the first call, byte for byte.
type Outcome struct {
	StatusCode int
	Body       []byte
	Replayed   bool
}

// CreateOrder runs the idempotent create protocol:
//   - a key seen with the same payload replays the cached response
//   - a key seen with another payload fails with ErrIdempotencyConflict
//   - an unseen key creates the order, its ledger entry and the idempotency
//     record in one transaction
//
// Errors are *apperr.Error values; anything not caused by the caller has
// KindInternal and left no partial state behind.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (Outcome, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if in.IdempotencyKey == "" {
		slog.WarnContext(ctx, "Rejected create order without idempotency key")
		return Outcome{}, apperr.ErrMissingIdempotencyKey
	}
	span.SetAttributes(attribute.String("idempotency_key", in.IdempotencyKey))
	log := slog.With("idempotency_key", in.IdempotencyKey)

	fp, err := fingerprint.Of(in.Request.Payload())
	if err != nil {
		return Outcome{}, apperr.Internal(err)
	}

	outcome, found, err := s.replay(ctx, in.IdempotencyKey, fp)
	if err != nil || found {
		return outcome, err
	}

	log.InfoContext(ctx, "No idempotency record found, creating order")

	outcome, orderID, err := s.create(ctx, in, fp)
	if errors.Is(err, idempotency.ErrDuplicateKey) {
		// A concurrent request with the same key committed first.
		log.InfoContext(ctx, "Idempotency key claimed concurrently, replaying stored response")

		outcome, found, err = s.replay(ctx, in.IdempotencyKey, fp)
		if err != nil {
			return Outcome{}, err
		}
		if !found {
			return Outcome{}, apperr.Internal(fmt.Errorf("idempotency record for key %q missing after duplicate insert", in.IdempotencyKey))
		}
		return outcome, nil
	}
	if err != nil {
		log.ErrorContext(ctx, "Order creation rolled back", "error", err)
		span.SetStatus(codes.Error, "order creation failed")
		span.RecordError(err)
		return Outcome{}, apperr.Internal(err)
	}

	if in.FailAfterCommit {
		log.ErrorContext(ctx, "Simulating failure after commit", "order_id", orderID)
		span.SetStatus(codes.Error, apperr.ErrSimulatedFailure.Message)
		return Outcome{}, apperr.ErrSimulatedFailure
	}

	return outcome, nil
}

// replay looks up key. found is false when the key is unseen.
func (s *OrderService) replay(ctx context.Context, key, fp string) (outcome Outcome, found bool, err error) {
	rec, err := s.newUOW().IdempotencyRepository().Get(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "Idempotency lookup failed", "idempotency_key", key, "error", err)
		return Outcome{}, false, apperr.Internal(err)
	}
	if rec == nil {
		return Outcome{}, false, nil
	}

	if !rec.Matches(fp) {
		slog.WarnContext(ctx, "Idempotency key reused with a different payload", "idempotency_key", key)
		return Outcome{}, true, apperr.ErrIdempotencyConflict
	}

	slog.InfoContext(ctx, "Replaying stored response", "idempotency_key", key, "status_code", rec.StatusCode)

	return Outcome{
		StatusCode: rec.StatusCode,
		Body:       rec.ResponseBody,
		Replayed:   true,
	}, true, nil
}

// create commits a new order, retrying with a fresh id when the generated
// one is already taken.
func (s *OrderService) create(ctx context.Context, in CreateOrderInput, fp string) (Outcome, string, error) {
	var (
		outcome Outcome
		orderID string
	)

	backoff := retry.WithMaxRetries(s.maxCreateAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		orderID = s.newOrderID()

		var err error
		outcome, err = s.commit(ctx, in, fp, orderID)
		if errors.Is(err, order.ErrDuplicateID) {
			slog.WarnContext(ctx, "Generated order id already exists, retrying",
				"idempotency_key", in.IdempotencyKey, "order_id", orderID)
			return retry.RetryableError(err)
		}

		return err
	})

	return outcome, orderID, err
}

// commit writes the idempotency record, the order, its ledger entry and,
// when enabled, the outbox message as one atomic unit.
func (s *OrderService) commit(ctx context.Context, in CreateOrderInput, fp, orderID string) (Outcome, error) {
	now := s.clock.Now()

	body, err := json.Marshal(order.CreatedResponse{
		OrderID: orderID,
		Status:  order.StatusCreated,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to marshal response: %w", err)
	}

	newOrder := order.Order{
		ID:             orderID,
		CustomerID:     in.Request.CustomerID,
		ItemID:         in.Request.ItemID,
		Quantity:       in.Request.Quantity,
		Status:         order.StatusCreated,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      now,
	}

	work := s.newUOW()
	err = work.Do(ctx, func(ctx context.Context) error {
		// The record is inserted first so that a concurrent request with the
		// same key fails on the idempotency key, not on orders.idempotency_key.
		err := work.IdempotencyRepository().Insert(ctx, idempotency.Record{
			Key:          in.IdempotencyKey,
			Fingerprint:  fp,
			ResponseBody: body,
			StatusCode:   http.StatusCreated,
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}

		if err := work.OrderRepository().Create(ctx, newOrder); err != nil {
			return err
		}

		_, err = work.LedgerRepository().Append(ctx, ledger.Entry{
			OrderID:    orderID,
			CustomerID: newOrder.CustomerID,
			Quantity:   newOrder.Quantity,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}

		if s.outbox == nil {
			return nil
		}

		msg, err := s.orderCreatedMessage(newOrder, now)
		if err != nil {
			return err
		}

		return work.OutboxRepository().Insert(ctx, msg)
	})
	if err != nil {
		return Outcome{}, err
	}

	slog.InfoContext(ctx, "Order created",
		"idempotency_key", in.IdempotencyKey,
		"order_id", orderID,
		"customer_id", newOrder.CustomerID)

	return Outcome{
		StatusCode: http.StatusCreated,
		Body:       body,
	}, nil
}

func (s *OrderService) orderCreatedMessage(o order.Order, now time.Time) (outbox.OutboxMessage, error) {
	payload, err := json.Marshal(order.NewCreatedEvent(o))
	if err != nil {
		return outbox.OutboxMessage{}, fmt.Errorf("failed to marshal order created event: %w", err)
	}

	return outbox.OutboxMessage{
		ExchangeName: s.outbox.ExchangeName,
		RoutingKey:   s.outbox.RoutingKey,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   s.outbox.MaxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}, nil
}
