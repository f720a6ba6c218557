package port

import (
	"context"
	"github.com/nikolayk812/storefront/internal/domain"
)

type PaymentWidget interface {
	Open(ctx context.Context, req domain.WidgetRequest) (domain.WidgetResult, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.CheckoutEvent) error
}
