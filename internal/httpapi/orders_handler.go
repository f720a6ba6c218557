package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/nikolayk812/storefront/internal/domain"
	"net/http"
)

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := domain.OrderID(chi.URLParam(r, "id"))

	order, err := h.api.GetOrder(r.Context(), id)
	if err != nil {
		h.respondShopError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, order)
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.api.ListMyOrders(r.Context())
	if err != nil {
		h.respondShopError(w, err)
		return
	}

	if orders == nil {
		orders = []domain.OrderDetails{}
	}
	h.respondJSON(w, http.StatusOK, orders)
}
