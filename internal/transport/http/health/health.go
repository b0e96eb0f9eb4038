package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/transport/http/httperr"
)

const pingTimeout = 2 * time.Second

type service interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
}

func Health(w http.ResponseWriter, r *http.Request, service service) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := service.Ping(ctx); err != nil {
		slog.ErrorContext(r.Context(), "Health check failed", "error", err)
		httperr.WriteJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})

		return
	}

	httperr.WriteJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}
