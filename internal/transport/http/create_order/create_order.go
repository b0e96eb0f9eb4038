package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/apperr"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/order"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/idempotent-order/internal/transport/http/httperr"
	"github.com/go-playground/validator/v10"
)

const (
	HeaderIdempotencyKey  = "Idempotency-Key"
	HeaderFailAfterCommit = "X-Debug-Fail-After-Commit"
	HeaderReplayed        = "Idempotent-Replayed"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, in ordersvc.CreateOrderInput) (ordersvc.Outcome, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
	ItemID     string `json:"itemId"     validate:"required"`
	Quantity   int    `json:"quantity"   validate:"gte=1"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validate.Struct(r)
}

// toModel converts createOrderRequest to order.CreateRequest.
func (r *createOrderRequest) toModel() order.CreateRequest {
	return order.CreateRequest{
		CustomerID: r.CustomerID,
		ItemID:     r.ItemID,
		Quantity:   r.Quantity,
	}
}

// Options controls request handling that depends on deployment.
type Options struct {
	// FailAfterCommitEnabled honours the X-Debug-Fail-After-Commit header.
	FailAfterCommitEnabled bool
}

// CreateOrder handles the idempotent create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service, opts Options) {
	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key == "" {
		slog.WarnContext(r.Context(), "Missing idempotency key in request headers")
		httperr.Write(w, r, apperr.ErrMissingIdempotencyKey)

		return
	}

	req := createOrderRequest{}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		slog.WarnContext(r.Context(), "Error decoding request body for create order",
			"idempotency_key", key, "error", err)
		httperr.Write(w, r, apperr.Invalid("malformed request body", err))

		return
	}

	if err := req.Validate(); err != nil {
		slog.WarnContext(r.Context(), "Error validating request body for create order",
			"idempotency_key", key, "error", err)
		httperr.Write(w, r, apperr.Invalid("invalid request body: "+err.Error(), err))

		return
	}

	failAfterCommit := r.Header.Get(HeaderFailAfterCommit) == "true"
	if failAfterCommit && !opts.FailAfterCommitEnabled {
		slog.WarnContext(r.Context(), "Ignoring fail-after-commit header, debug mode is disabled",
			"idempotency_key", key)
		failAfterCommit = false
	}

	out, err := service.CreateOrder(r.Context(), ordersvc.CreateOrderInput{
		IdempotencyKey:  key,
		Request:         req.toModel(),
		FailAfterCommit: failAfterCommit,
	})
	if err != nil {
		httperr.Write(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if out.Replayed {
		w.Header().Set(HeaderReplayed, "true")
	}
	w.WriteHeader(out.StatusCode)

	if _, err := w.Write(out.Body); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response for create order", "error", err)
	}
}
