package payment

import (
	"context"
	"errors"
	"fmt"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"go.uber.org/zap"
)

type stripeWidget struct {
	intents   *paymentintent.Client
	returnURL string
	logger    *zap.Logger
}

// NewStripeWidget confirms the PaymentIntent named by WidgetRequest.OrderRef server side.
// A nil backend uses Stripe's API.
func NewStripeWidget(secretKey string, backend stripe.Backend, returnURL string, logger *zap.Logger) port.PaymentWidget {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}

	return &stripeWidget{
		intents:   &paymentintent.Client{B: backend, Key: secretKey},
		returnURL: returnURL,
		logger:    logger,
	}
}

func (w *stripeWidget) Open(ctx context.Context, req domain.WidgetRequest) (domain.WidgetResult, error) {
	if req.OrderRef == "" {
		return domain.WidgetResult{}, fmt.Errorf("orderRef is empty")
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	if w.returnURL != "" {
		params.ReturnURL = stripe.String(w.returnURL)
	}

	pi, err := w.intents.Confirm(req.OrderRef, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			w.logger.Info("Stripe card declined",
				zap.String("intent_id", req.OrderRef),
				zap.String("code", string(stripeErr.Code)))
			return domain.WidgetResult{Outcome: domain.WidgetFailure, OrderRef: req.OrderRef, Reason: stripeErr.Msg}, nil
		}
		return domain.WidgetResult{}, fmt.Errorf("intents.Confirm: %w", err)
	}

	return resultFromIntent(pi), nil
}

func resultFromIntent(pi *stripe.PaymentIntent) domain.WidgetResult {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		paymentRef := pi.ID
		if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
			paymentRef = pi.LatestCharge.ID
		}
		return domain.WidgetResult{Outcome: domain.WidgetSuccess, OrderRef: pi.ID, PaymentRef: paymentRef}
	case stripe.PaymentIntentStatusCanceled:
		return domain.WidgetResult{Outcome: domain.WidgetDismissed, OrderRef: pi.ID}
	}

	reason := fmt.Sprintf("payment %s", pi.Status)
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = pi.LastPaymentError.Msg
	}
	return domain.WidgetResult{Outcome: domain.WidgetFailure, OrderRef: pi.ID, Reason: reason}
}
