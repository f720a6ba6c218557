package checkout

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/nikolayk812/storefront/internal/cart"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"sync"
	"time"
)

const (
	DefaultProvider    = "razorpay"
	DefaultCallTimeout = 15 * time.Second
)

const (
	msgEmptyCart        = "Your cart is empty."
	msgPreviewFailed    = "We could not load your checkout. Please try again."
	msgPreviewStale     = "Your cart changed. Please review the updated total."
	msgOrderFailed      = "We could not place your order. Please try again."
	msgPaymentCancelled = "Payment was cancelled."
	msgPaymentDeclined  = "Payment failed."
	msgVerifyRetry      = "We could not confirm your payment yet. Please try again."
	msgCompleted        = "Order placed successfully."
)

type Options struct {
	SessionID   string
	Provider    string
	CallTimeout time.Duration
	Events      port.EventPublisher
	NewKey      func() string
	Now         func() time.Time
}

// attempt is one (composition, address) submission. Its idempotency key and the order it
// produced survive retries until the cart or the address changes.
type attempt struct {
	key            string
	address        domain.Address
	idempotencyKey string
	order          *domain.PlacedOrder
	intent         *domain.PaymentIntent
}

type Orchestrator struct {
	store       *cart.Store
	api         port.ShopAPI
	opts        Options
	logger      *zap.Logger
	group       singleflight.Group
	unsubscribe func()

	mu         sync.Mutex
	epoch      uint64
	phase      Phase
	preview    *domain.CheckoutPreview
	previewKey string
	stale      bool
	attempt    *attempt
	widget     *domain.WidgetRequest
	message    string
	reason     FailureReason
	redirect   bool
	verifying  bool
}

func New(store *cart.Store, api port.ShopAPI, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.Provider == "" {
		opts.Provider = DefaultProvider
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.NewKey == nil {
		opts.NewKey = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	o := &Orchestrator{
		store:  store,
		api:    api,
		opts:   opts,
		logger: logger.With(zap.String("session_id", opts.SessionID)),
		phase:  PhaseIdle,
	}
	o.unsubscribe = store.Subscribe(o.onCartChange)

	return o
}

// Close detaches the orchestrator from the cart.
func (o *Orchestrator) Close() {
	o.unsubscribe()
}

func (o *Orchestrator) onCartChange(snapshot domain.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.preview != nil {
		o.stale = snapshot.CompositionKey() != o.previewKey
	}
}

// Enter requests a fresh preview for the current cart.
func (o *Orchestrator) Enter(ctx context.Context) error {
	_, err, _ := o.group.Do("preview", func() (any, error) {
		return nil, o.enter(ctx)
	})
	return err
}

// Refresh re-previews only when there is no current preview or the cart changed since.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	fresh := o.preview != nil && !o.stale
	o.mu.Unlock()

	if fresh {
		return nil
	}
	return o.Enter(ctx)
}

func (o *Orchestrator) enter(ctx context.Context) error {
	o.mu.Lock()
	if o.phase.InFlight() || o.phase == PhaseAwaitingPaymentConfirmation {
		o.mu.Unlock()
		return ErrInvalidPhase
	}
	if o.phase == PhaseCompleted || o.phase == PhaseVerificationFailed {
		o.attempt = nil
	}

	snapshot := o.store.Snapshot()
	o.resetOutcome()
	if snapshot.IsEmpty() {
		o.phase = PhasePreviewFailed
		o.preview = nil
		o.redirect = true
		o.message = msgEmptyCart
		o.mu.Unlock()
		return ErrEmptyCart
	}

	o.phase = PhasePreviewing
	epoch := o.epoch
	o.mu.Unlock()

	key := snapshot.CompositionKey()

	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	preview, err := o.api.Preview(callCtx, snapshot.Composition())

	o.mu.Lock()
	defer o.mu.Unlock()

	if epoch != o.epoch {
		return ErrAbandoned
	}

	if err != nil {
		o.phase = PhasePreviewFailed
		o.preview = nil
		o.redirect = IsRejection(err)
		o.message = userMessage(err, msgPreviewFailed)
		o.logger.Warn("Failed to preview checkout", zap.Bool("rejected", o.redirect), zap.Error(err))
		return fmt.Errorf("api.Preview: %w", err)
	}

	o.preview = &preview
	o.previewKey = key
	o.stale = key != o.store.Snapshot().CompositionKey()
	o.phase = PhaseReady
	if o.attempt != nil && o.attempt.key != key {
		o.attempt = nil
	}

	return nil
}

// PlaceOrder creates the order (once per attempt) and its payment intent, and returns what the
// payment widget must be opened with. Concurrent calls share a single execution.
func (o *Orchestrator) PlaceOrder(ctx context.Context, addr domain.Address) (domain.WidgetRequest, error) {
	v, err, _ := o.group.Do("place-order", func() (any, error) {
		return o.placeOrder(ctx, addr)
	})
	if err != nil {
		return domain.WidgetRequest{}, err
	}
	return v.(domain.WidgetRequest), nil
}

func (o *Orchestrator) placeOrder(ctx context.Context, addr domain.Address) (domain.WidgetRequest, error) {
	addr = NormalizeAddress(addr)

	o.mu.Lock()
	switch {
	case o.phase.InFlight() || o.phase == PhaseAwaitingPaymentConfirmation:
		o.mu.Unlock()
		return domain.WidgetRequest{}, ErrSubmissionInFlight
	case o.phase != PhaseReady:
		o.mu.Unlock()
		return domain.WidgetRequest{}, ErrInvalidPhase
	}

	snapshot := o.store.Snapshot()
	if snapshot.IsEmpty() {
		o.message = msgEmptyCart
		o.mu.Unlock()
		return domain.WidgetRequest{}, ErrEmptyCart
	}

	key := snapshot.CompositionKey()
	if o.stale || key != o.previewKey {
		o.stale = true
		o.message = msgPreviewStale
		o.mu.Unlock()
		return domain.WidgetRequest{}, ErrPreviewStale
	}

	if err := ValidateAddress(addr); err != nil {
		o.message = err.Error()
		o.mu.Unlock()
		return domain.WidgetRequest{}, err
	}

	att := o.attempt
	if att == nil || att.key != key || att.address != addr {
		att = &attempt{key: key, address: addr, idempotencyKey: o.opts.NewKey()}
		o.attempt = att
	}

	o.resetOutcome()
	o.phase = PhasePlacingOrder
	if att.order != nil {
		o.phase = PhaseInitiatingPayment
	}
	epoch := o.epoch
	order := att.order
	o.mu.Unlock()

	if order == nil {
		placed, err := o.createOrder(ctx, att, snapshot)

		o.mu.Lock()
		if epoch != o.epoch {
			o.mu.Unlock()
			return domain.WidgetRequest{}, ErrAbandoned
		}
		if err != nil {
			o.phase = PhaseReady
			o.message = userMessage(err, msgOrderFailed)
			o.mu.Unlock()
			o.logger.Warn("Failed to create order", zap.String("idempotency_key", att.idempotencyKey), zap.Error(err))
			return domain.WidgetRequest{}, fmt.Errorf("api.CreateOrder: %w", err)
		}
		att.order = &placed
		o.phase = PhaseInitiatingPayment
		o.mu.Unlock()

		o.logger.Info("Order placed", zap.Stringer("order_id", placed.OrderID))
		o.publish(ctx, domain.EventOrderPlaced, placed.OrderID, placed.PayableAmount, "")
		order = &placed
	}

	intent, err := o.createPaymentIntent(ctx, *order)

	o.mu.Lock()
	defer o.mu.Unlock()

	if epoch != o.epoch {
		return domain.WidgetRequest{}, ErrAbandoned
	}
	if err != nil {
		o.phase = PhaseReady
		o.message = userMessage(err, fmt.Sprintf("We could not start the payment for order #%s. Please try again.", order.OrderID))
		o.logger.Warn("Failed to create payment intent", zap.Stringer("order_id", order.OrderID), zap.Error(err))
		return domain.WidgetRequest{}, fmt.Errorf("api.CreatePaymentIntent: %w", err)
	}

	att.intent = &intent
	req := o.widgetRequest(*order, intent, addr)
	o.widget = &req
	o.phase = PhaseAwaitingPaymentConfirmation

	return req, nil
}

func (o *Orchestrator) createOrder(ctx context.Context, att *attempt, snapshot domain.Snapshot) (domain.PlacedOrder, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	return o.api.CreateOrder(callCtx, domain.OrderRequest{
		Address:        att.address,
		Items:          snapshot.Composition(),
		IdempotencyKey: att.idempotencyKey,
	})
}

func (o *Orchestrator) createPaymentIntent(ctx context.Context, order domain.PlacedOrder) (domain.PaymentIntent, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	return o.api.CreatePaymentIntent(callCtx, domain.PaymentIntentRequest{
		OrderID:  order.OrderID,
		Amount:   order.PayableAmount,
		Currency: o.store.Currency().String(),
		Provider: o.opts.Provider,
		Method:   domain.PaymentMethodOnline,
	})
}

func (o *Orchestrator) widgetRequest(order domain.PlacedOrder, intent domain.PaymentIntent, addr domain.Address) domain.WidgetRequest {
	amount := intent.Amount
	if amount.IsZero() {
		amount = order.PayableAmount
	}
	cur := intent.Currency
	if cur == "" {
		cur = o.store.Currency().String()
	}

	return domain.WidgetRequest{
		OrderID:   order.OrderID,
		OrderRef:  intent.ReferenceID,
		PublicKey: intent.PublicKey,
		Amount:    amount,
		Currency:  cur,
		Prefill: domain.Prefill{
			Name:  addr.Name,
			Email: addr.Email,
			Phone: addr.Phone,
		},
	}
}

// ResolvePayment applies the payment widget's outcome. Success is verified with the backend
// before the cart is cleared.
func (o *Orchestrator) ResolvePayment(ctx context.Context, result domain.WidgetResult) error {
	o.mu.Lock()
	if o.phase != PhaseAwaitingPaymentConfirmation || o.attempt == nil || o.attempt.order == nil {
		o.mu.Unlock()
		return ErrInvalidPhase
	}
	if o.verifying {
		o.mu.Unlock()
		return ErrSubmissionInFlight
	}

	order := *o.attempt.order

	switch result.Outcome {
	case domain.WidgetFailure, domain.WidgetDismissed:
		o.phase = PhasePaymentFailed
		o.widget = nil
		o.reason = ReasonDeclined
		o.message = msgPaymentDeclined
		if result.Reason != "" {
			o.message = fmt.Sprintf("%s %s", msgPaymentDeclined, result.Reason)
		}
		if result.Outcome == domain.WidgetDismissed {
			o.reason = ReasonCancelled
			o.message = msgPaymentCancelled
		}
		reason := o.reason
		o.mu.Unlock()

		o.logger.Info("Payment not completed", zap.Stringer("order_id", order.OrderID), zap.String("reason", string(reason)))
		o.publish(ctx, domain.EventPaymentFailed, order.OrderID, order.PayableAmount, string(reason))
		return nil
	case domain.WidgetSuccess:
	default:
		o.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, result.Outcome)
	}

	o.verifying = true
	epoch := o.epoch
	o.mu.Unlock()

	verified, err := o.verify(ctx, order.OrderID, result)

	o.mu.Lock()
	o.verifying = false
	if epoch != o.epoch {
		o.mu.Unlock()
		return ErrAbandoned
	}

	if err != nil && !IsRejection(err) {
		o.message = msgVerifyRetry
		o.mu.Unlock()
		o.logger.Warn("Failed to verify payment", zap.Stringer("order_id", order.OrderID), zap.Error(err))
		return fmt.Errorf("api.VerifyPayment: %w", err)
	}

	if err != nil || !verified {
		o.phase = PhaseVerificationFailed
		o.widget = nil
		o.message = supportMessage(order.OrderID)
		o.mu.Unlock()

		o.logger.Error("Payment verification failed", zap.Stringer("order_id", order.OrderID), zap.Error(err))
		o.publish(ctx, domain.EventVerificationFailed, order.OrderID, order.PayableAmount, "")
		return nil
	}

	o.phase = PhaseCompleted
	o.widget = nil
	o.preview = nil
	o.stale = false
	o.message = msgCompleted
	o.mu.Unlock()

	// outside o.mu: Clear notifies onCartChange
	o.store.Clear()

	o.logger.Info("Checkout completed", zap.Stringer("order_id", order.OrderID))
	o.publish(ctx, domain.EventCheckoutCompleted, order.OrderID, order.PayableAmount, "")

	return nil
}

func (o *Orchestrator) verify(ctx context.Context, orderID domain.OrderID, result domain.WidgetResult) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	return o.api.VerifyPayment(callCtx, domain.PaymentVerification{
		OrderID:            orderID,
		ProviderOrderRef:   result.OrderRef,
		ProviderPaymentRef: result.PaymentRef,
		ProviderSignature:  result.Signature,
	})
}

// Pay runs PlaceOrder, opens widget and resolves its outcome.
func (o *Orchestrator) Pay(ctx context.Context, addr domain.Address, widget port.PaymentWidget) error {
	req, err := o.PlaceOrder(ctx, addr)
	if err != nil {
		return err
	}

	result, err := widget.Open(ctx, req)
	if err != nil {
		o.logger.Warn("Payment widget failed", zap.Stringer("order_id", req.OrderID), zap.Error(err))
		result = domain.WidgetResult{Outcome: domain.WidgetFailure, Reason: err.Error()}
		if ctx.Err() != nil {
			result = domain.WidgetResult{Outcome: domain.WidgetDismissed}
		}
	}

	return o.ResolvePayment(context.WithoutCancel(ctx), result)
}

// Retry returns a failed payment to Ready; the next PlaceOrder reuses the existing order.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != PhasePaymentFailed {
		return ErrInvalidPhase
	}

	o.resetOutcome()
	o.phase = PhaseReady

	return nil
}

// Abandon drops all checkout state. Orders already created stay pending on the backend.
func (o *Orchestrator) Abandon() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.verifying {
		return ErrSubmissionInFlight
	}

	o.epoch++
	o.phase = PhaseIdle
	o.preview = nil
	o.previewKey = ""
	o.stale = false
	o.attempt = nil
	o.widget = nil
	o.resetOutcome()

	return nil
}

func (o *Orchestrator) resetOutcome() {
	o.message = ""
	o.reason = ReasonNone
	o.redirect = false
}

func (o *Orchestrator) publish(ctx context.Context, typ domain.CheckoutEventType, orderID domain.OrderID, amount decimal.Decimal, reason string) {
	if o.opts.Events == nil {
		return
	}

	event := domain.CheckoutEvent{
		Type:       typ,
		SessionID:  o.opts.SessionID,
		OrderID:    orderID,
		Amount:     amount,
		Reason:     reason,
		OccurredAt: o.opts.Now().UTC(),
	}

	if err := o.opts.Events.Publish(context.WithoutCancel(ctx), event); err != nil {
		o.logger.Warn("Failed to publish checkout event", zap.String("type", string(typ)), zap.Error(err))
	}
}

func supportMessage(orderID domain.OrderID) string {
	return fmt.Sprintf("Your payment could not be confirmed. Please contact support with order #%s.", orderID)
}
