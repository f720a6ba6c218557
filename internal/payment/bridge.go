package payment

import (
	"context"
	"fmt"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"go.uber.org/zap"
	"sync"
)

// Callbacks are handed to a callback-style widget. The first one invoked wins.
type Callbacks struct {
	OnSuccess func(orderRef, paymentRef, signature string)
	OnFailure func(reason string)
	OnDismiss func()
}

type CallbackOpener interface {
	Open(req domain.WidgetRequest, cb Callbacks) error
}

type bridge struct {
	opener CallbackOpener
	logger *zap.Logger
}

// NewBridge turns a callback widget into a blocking port.PaymentWidget that resolves exactly once.
func NewBridge(opener CallbackOpener, logger *zap.Logger) port.PaymentWidget {
	return &bridge{opener: opener, logger: logger}
}

func (b *bridge) Open(ctx context.Context, req domain.WidgetRequest) (domain.WidgetResult, error) {
	results := make(chan domain.WidgetResult, 1)

	var once sync.Once
	resolve := func(result domain.WidgetResult) {
		delivered := false
		once.Do(func() {
			results <- result
			delivered = true
		})
		if !delivered {
			b.logger.Warn("Ignoring repeated payment widget callback",
				zap.Stringer("order_id", req.OrderID),
				zap.String("outcome", string(result.Outcome)))
		}
	}

	err := b.opener.Open(req, Callbacks{
		OnSuccess: func(orderRef, paymentRef, signature string) {
			resolve(domain.WidgetResult{
				Outcome:    domain.WidgetSuccess,
				OrderRef:   orderRef,
				PaymentRef: paymentRef,
				Signature:  signature,
			})
		},
		OnFailure: func(reason string) {
			resolve(domain.WidgetResult{Outcome: domain.WidgetFailure, Reason: reason})
		},
		OnDismiss: func() {
			resolve(domain.WidgetResult{Outcome: domain.WidgetDismissed})
		},
	})
	if err != nil {
		return domain.WidgetResult{}, fmt.Errorf("opener.Open: %w", err)
	}

	select {
	case result := <-results:
		return result, nil
	case <-ctx.Done():
		return domain.WidgetResult{}, ctx.Err()
	}
}
