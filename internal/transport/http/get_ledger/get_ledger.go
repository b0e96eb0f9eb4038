package getledger

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/ledger"
	"github.com/corray333/backend-labs/idempotent-order/internal/transport/http/httperr"
	"github.com/go-chi/chi/v5"
)

type service interface {
	ListLedgerEntries(ctx context.Context, orderID string) ([]ledger.Entry, error)
}

type entryResponse struct {
	LedgerID   int64     `json:"ledgerId"`
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ledgerResponse struct {
	Entries []entryResponse `json:"entries"`
}

// GetLedger returns the ledger entries recorded for an order.
func GetLedger(w http.ResponseWriter, r *http.Request, service service) {
	entries, err := service.ListLedgerEntries(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		httperr.Write(w, r, err)

		return
	}

	resp := ledgerResponse{Entries: make([]entryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, entryResponse{
			LedgerID:   e.ID,
			OrderID:    e.OrderID,
			CustomerID: e.CustomerID,
			Quantity:   e.Quantity,
			CreatedAt:  e.CreatedAt,
		})
	}

	httperr.WriteJSON(w, r, http.StatusOK, resp)
}
