package checkout_test

import (
	"context"
	"errors"
	"sync"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type rejection struct {
	msg string
}

func (r *rejection) Error() string { return "rejected: " + r.msg }
func (r *rejection) IsRejection() bool { return true }
func (r *rejection) UserMessage() string { return r.msg }

var errNetwork = errors.New("connection reset by peer")

type fakeShop struct {
	mu sync.Mutex

	preview     func(ctx context.Context, items []domain.ItemQuantity) (domain.CheckoutPreview, error)
	createOrder func(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error)
	intent      func(ctx context.Context, req domain.PaymentIntentRequest) (domain.PaymentIntent, error)
	verify      func(ctx context.Context, req domain.PaymentVerification) (bool, error)

	previewItems   [][]domain.ItemQuantity
	orderRequests  []domain.OrderRequest
	intentRequests []domain.PaymentIntentRequest
	verifyRequests []domain.PaymentVerification
}

func newFakeShop() *fakeShop {
	return &fakeShop{
		preview: func(_ context.Context, items []domain.ItemQuantity) (domain.CheckoutPreview, error) {
			return domain.CheckoutPreview{
				TotalAmount:    decimal.NewFromInt(298),
				DeliveryCharge: decimal.NewFromInt(50),
				PayableAmount:  decimal.NewFromInt(348),
				Address:        &domain.Address{Name: "Asha", Phone: "9876543210", Address: "12 MG Road", City: "Pune", Pincode: "411001"},
			}, nil
		},
		createOrder: func(_ context.Context, _ domain.OrderRequest) (domain.PlacedOrder, error) {
			return domain.PlacedOrder{OrderID: "501", PayableAmount: decimal.NewFromInt(348)}, nil
		},
		intent: func(_ context.Context, req domain.PaymentIntentRequest) (domain.PaymentIntent, error) {
			return domain.PaymentIntent{ReferenceID: "order_ref_1", PublicKey: "rzp_test_key", Amount: req.Amount, Currency: req.Currency}, nil
		},
		verify: func(_ context.Context, _ domain.PaymentVerification) (bool, error) {
			return true, nil
		},
	}
}

func (f *fakeShop) Preview(ctx context.Context, items []domain.ItemQuantity) (domain.CheckoutPreview, error) {
	f.mu.Lock()
	f.previewItems = append(f.previewItems, items)
	fn := f.preview
	f.mu.Unlock()
	return fn(ctx, items)
}

func (f *fakeShop) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error) {
	f.mu.Lock()
	f.orderRequests = append(f.orderRequests, req)
	fn := f.createOrder
	f.mu.Unlock()
	return fn(ctx, req)
}

func (f *fakeShop) CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest) (domain.PaymentIntent, error) {
	f.mu.Lock()
	f.intentRequests = append(f.intentRequests, req)
	fn := f.intent
	f.mu.Unlock()
	return fn(ctx, req)
}

func (f *fakeShop) VerifyPayment(ctx context.Context, req domain.PaymentVerification) (bool, error) {
	f.mu.Lock()
	f.verifyRequests = append(f.verifyRequests, req)
	fn := f.verify
	f.mu.Unlock()
	return fn(ctx, req)
}

func (f *fakeShop) GetOrder(_ context.Context, id domain.OrderID) (domain.OrderDetails, error) {
	return domain.OrderDetails{ID: id}, nil
}

func (f *fakeShop) ListMyOrders(_ context.Context) ([]domain.OrderDetails, error) {
	return nil, nil
}

func (f *fakeShop) set(apply func(f *fakeShop)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apply(f)
}

func (f *fakeShop) counts() (previews, orders, intents, verifies int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.previewItems), len(f.orderRequests), len(f.intentRequests), len(f.verifyRequests)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.CheckoutEvent
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, event domain.CheckoutEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) types() []domain.CheckoutEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.CheckoutEventType
	for _, e := range f.events {
		result = append(result, e.Type)
	}
	return result
}

type widgetFunc func(ctx context.Context, req domain.WidgetRequest) (domain.WidgetResult, error)

func (fn widgetFunc) Open(ctx context.Context, req domain.WidgetRequest) (domain.WidgetResult, error) {
	return fn(ctx, req)
}
