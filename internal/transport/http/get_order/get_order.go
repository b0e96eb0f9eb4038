package getorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/models/order"
	"github.com/corray333/backend-labs/idempotent-order/internal/transport/http/httperr"
	"github.com/go-chi/chi/v5"
)

type service interface {
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
}

type orderResponse struct {
	OrderID    string       `json:"orderId"`
	CustomerID string       `json:"customerId"`
	ItemID     string       `json:"itemId"`
	Quantity   int          `json:"quantity"`
	Status     order.Status `json:"status"`
}

func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	o, err := service.GetOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		httperr.Write(w, r, err)

		return
	}

	httperr.WriteJSON(w, r, http.StatusOK, orderResponse{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		ItemID:     o.ItemID,
		Quantity:   o.Quantity,
		Status:     o.Status,
	})
}
