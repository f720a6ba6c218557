package domain

import (
	"github.com/shopspring/decimal"
	"time"
)

type CheckoutEventType string

const (
	EventOrderPlaced        CheckoutEventType = "order_placed"
	EventPaymentFailed      CheckoutEventType = "payment_failed"
	EventVerificationFailed CheckoutEventType = "verification_failed"
	EventCheckoutCompleted  CheckoutEventType = "checkout_completed"
)

type CheckoutEvent struct {
	Type       CheckoutEventType `json:"type"`
	SessionID  string            `json:"sessionId,omitempty"`
	OrderID    OrderID           `json:"orderId"`
	Amount     decimal.Decimal   `json:"amount"`
	Reason     string            `json:"reason,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
