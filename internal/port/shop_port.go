package port

import (
	"context"
	"github.com/nikolayk812/storefront/internal/domain"
)

type ShopAPI interface {
	Preview(ctx context.Context, items []domain.ItemQuantity) (domain.CheckoutPreview, error)
	CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error)
	CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (domain.PaymentIntent, error)
	// VerifyPayment returns false without error when the backend answers with a structured refusal.
	VerifyPayment(ctx context.Context, req domain.PaymentVerification) (bool, error)
	GetOrder(ctx context.Context, id domain.OrderID) (domain.OrderDetails, error)
	ListMyOrders(ctx context.Context) ([]domain.OrderDetails, error)
}
