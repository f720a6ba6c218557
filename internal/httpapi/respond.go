package httpapi

import (
	"encoding/json"
	"errors"
	"github.com/nikolayk812/storefront/internal/checkout"
	"github.com/nikolayk812/storefront/internal/shopapi"
	"go.uber.org/zap"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (h *handler) respondError(w http.ResponseWriter, status int, code, message, details string) {
	h.respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// respondCheckout writes the checkout view, or the error for a refused operation. Backend
// failures are part of the view, so they come back with the view and a non-2xx status.
func (h *handler) respondCheckout(w http.ResponseWriter, s *Session, err error) {
	if err == nil {
		h.respondJSON(w, http.StatusOK, newCheckoutView(s.Checkout.State()))
		return
	}

	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondError(w, http.StatusUnprocessableEntity, "invalid_address", verr.Message, verr.Field)
	case errors.Is(err, checkout.ErrEmptyCart):
		h.respondError(w, http.StatusConflict, "empty_cart", err.Error(), "")
	case errors.Is(err, checkout.ErrPreviewStale):
		h.respondError(w, http.StatusConflict, "preview_stale", err.Error(), "")
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		h.respondError(w, http.StatusConflict, "submission_in_flight", err.Error(), "")
	case errors.Is(err, checkout.ErrInvalidPhase):
		h.respondError(w, http.StatusConflict, "invalid_phase", err.Error(), string(s.Checkout.State().Phase))
	case errors.Is(err, checkout.ErrAbandoned):
		h.respondError(w, http.StatusConflict, "abandoned", err.Error(), "")
	case errors.Is(err, checkout.ErrUnknownOutcome):
		h.respondError(w, http.StatusBadRequest, "unknown_outcome", err.Error(), "")
	case checkout.IsRejection(err):
		h.respondJSON(w, http.StatusUnprocessableEntity, newCheckoutView(s.Checkout.State()))
	default:
		h.logger.Warn("Checkout call failed", zap.String("session_id", s.ID), zap.Error(err))
		h.respondJSON(w, http.StatusBadGateway, newCheckoutView(s.Checkout.State()))
	}
}

func (h *handler) respondShopError(w http.ResponseWriter, err error) {
	var apiErr *shopapi.Error
	if !errors.As(err, &apiErr) || !apiErr.IsRejection() {
		h.logger.Warn("Shop API call failed", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "backend_unavailable", "backend unavailable", "")
		return
	}

	switch apiErr.Status {
	case http.StatusNotFound:
		h.respondError(w, http.StatusNotFound, "not_found", apiErr.UserMessage(), "")
	case http.StatusUnauthorized, http.StatusForbidden:
		h.respondError(w, apiErr.Status, "unauthorized", apiErr.UserMessage(), "")
	default:
		h.respondError(w, http.StatusUnprocessableEntity, "rejected", apiErr.UserMessage(), "")
	}
}
