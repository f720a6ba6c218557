package httpapi

import (
	"encoding/json"
	"github.com/nikolayk812/storefront/internal/checkout"
	"github.com/nikolayk812/storefront/internal/domain"
	"net/http"
)

type checkoutView struct {
	Phase          checkout.Phase          `json:"phase"`
	Preview        *domain.CheckoutPreview `json:"preview,omitempty"`
	PreviewStale   bool                    `json:"previewStale"`
	OrderID        domain.OrderID          `json:"orderId,omitempty"`
	DisplayedTotal *domain.Money           `json:"displayedTotal,omitempty"`
	Address        *domain.Address         `json:"address,omitempty"`
	Widget         *domain.WidgetRequest   `json:"widget,omitempty"`
	Verifying      bool                    `json:"verifying"`
	Message        string                  `json:"message,omitempty"`
	Reason         checkout.FailureReason  `json:"reason,omitempty"`
	SubmitDisabled bool                    `json:"submitDisabled"`
	RedirectToShop bool                    `json:"redirectToShop"`
	ContactSupport bool                    `json:"contactSupport"`
	CanRetry       bool                    `json:"canRetry"`
}

func newCheckoutView(v checkout.View) checkoutView {
	return checkoutView{
		Phase:          v.Phase,
		Preview:        v.Preview,
		PreviewStale:   v.PreviewStale,
		OrderID:        v.OrderID,
		DisplayedTotal: v.DisplayedTotal,
		Address:        v.Address,
		Widget:         v.Widget,
		Verifying:      v.Verifying,
		Message:        v.Message,
		Reason:         v.Reason,
		SubmitDisabled: v.SubmitDisabled,
		RedirectToShop: v.RedirectToShop,
		ContactSupport: v.ContactSupport,
		CanRetry:       v.CanRetry,
	}
}

func (h *handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	h.respondCheckout(w, sessionFrom(r.Context()), nil)
}

// enterCheckout previews the cart, or re-previews it when it changed since the last preview.
func (h *handler) enterCheckout(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	if _, err := s.Panel.CheckoutEntry(); err != nil {
		// still entered, so the view reports the redirect
		_ = s.Checkout.Enter(r.Context())
		h.respondCheckout(w, s, checkout.ErrEmptyCart)
		return
	}

	err := s.Checkout.Refresh(r.Context())
	if phase := s.Checkout.State().Phase; err == nil && phase.IsTerminal() {
		err = s.Checkout.Enter(r.Context())
	}

	h.respondCheckout(w, s, err)
}

func (h *handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	var addr domain.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}

	_, err := s.Checkout.PlaceOrder(r.Context(), addr)
	h.respondCheckout(w, s, err)
}

// resolvePayment receives the payment widget outcome reported by the browser.
func (h *handler) resolvePayment(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	var result domain.WidgetResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}

	err := s.Checkout.ResolvePayment(r.Context(), result)
	h.respondCheckout(w, s, err)
}

// pay runs the whole payment server-side through the configured widget.
func (h *handler) pay(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	var addr domain.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}

	err := s.Checkout.Pay(r.Context(), addr, h.widget)
	h.respondCheckout(w, s, err)
}

func (h *handler) retryPayment(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	h.respondCheckout(w, s, s.Checkout.Retry())
}

func (h *handler) abandonCheckout(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	h.respondCheckout(w, s, s.Checkout.Abandon())
}
