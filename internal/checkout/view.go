package checkout

import (
	"github.com/nikolayk812/storefront/internal/domain"
)

// View is what the checkout screen renders.
type View struct {
	Phase          Phase
	Preview        *domain.CheckoutPreview
	PreviewStale   bool
	OrderID        domain.OrderID
	DisplayedTotal *domain.Money
	Address        *domain.Address
	Widget         *domain.WidgetRequest
	Verifying      bool
	Message        string
	Reason         FailureReason
	SubmitDisabled bool
	RedirectToShop bool
	ContactSupport bool
	CanRetry       bool
}

func (o *Orchestrator) State() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := View{
		Phase:          o.phase,
		PreviewStale:   o.stale,
		Message:        o.message,
		Reason:         o.reason,
		Verifying:      o.verifying,
		SubmitDisabled: o.phase != PhaseReady || o.stale || o.verifying,
		RedirectToShop: o.phase == PhasePreviewFailed && o.redirect,
		ContactSupport: o.phase == PhaseVerificationFailed,
		CanRetry:       o.phase == PhasePaymentFailed || (o.phase == PhasePreviewFailed && !o.redirect),
	}

	if o.preview != nil {
		preview := *o.preview
		v.Preview = &preview
		if preview.Address != nil {
			addr := *preview.Address
			v.Address = &addr
		}
		total := domain.NewMoney(preview.PayableAmount, o.store.Currency())
		v.DisplayedTotal = &total
	}

	if o.attempt != nil {
		addr := o.attempt.address
		v.Address = &addr
		if o.attempt.order != nil {
			v.OrderID = o.attempt.order.OrderID
			total := domain.NewMoney(o.attempt.order.PayableAmount, o.store.Currency())
			v.DisplayedTotal = &total
		}
	}

	if o.widget != nil {
		widget := *o.widget
		v.Widget = &widget
	}

	return v
}
