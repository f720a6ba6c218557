package httpapi

import (
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"github.com/nikolayk812/storefront/internal/domain"
	"net/http"
)

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	h.respondJSON(w, http.StatusOK, s.Panel.View())
}

func (h *handler) getSummary(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	h.respondJSON(w, http.StatusOK, s.Bar.View())
}

func (h *handler) addItem(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	var in domain.LineItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}

	if in.ID == "" {
		h.respondError(w, http.StatusBadRequest, "invalid_item", "id is empty", "id")
		return
	}
	if in.UnitPrice.IsNegative() {
		h.respondError(w, http.StatusBadRequest, "invalid_item", "unitPrice is negative", "unitPrice")
		return
	}

	s.Stepper(in.ID).Add(in)

	h.respondJSON(w, http.StatusOK, s.Panel.View())
}

func (h *handler) incrementItem(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	stepper := s.Stepper(chi.URLParam(r, "id"))
	if !stepper.InCart() {
		h.respondError(w, http.StatusNotFound, "item_not_found", "item is not in the cart", "")
		return
	}
	stepper.Increment()

	h.respondJSON(w, http.StatusOK, s.Panel.View())
}

func (h *handler) decrementItem(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	stepper := s.Stepper(chi.URLParam(r, "id"))
	if !stepper.InCart() {
		h.respondError(w, http.StatusNotFound, "item_not_found", "item is not in the cart", "")
		return
	}
	stepper.Decrement()

	h.respondJSON(w, http.StatusOK, s.Panel.View())
}

func (h *handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	id := chi.URLParam(r, "id")

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if req.Quantity == nil {
		h.respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required", "quantity")
		return
	}

	if s.Store.Quantity(id) == 0 {
		h.respondError(w, http.StatusNotFound, "item_not_found", "item is not in the cart", "")
		return
	}
	s.Panel.SetQuantity(id, *req.Quantity)

	h.respondJSON(w, http.StatusOK, s.Panel.View())
}

// removeItem is idempotent.
func (h *handler) removeItem(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	s.Panel.Remove(chi.URLParam(r, "id"))

	h.respondJSON(w, http.StatusOK, s.Panel.View())
}
