package domain

import (
	"github.com/shopspring/decimal"
)

const PaymentMethodOnline = "online"

type PaymentIntentRequest struct {
	OrderID  OrderID
	Amount   decimal.Decimal
	Currency string
	Provider string
	Method   string
}

type PaymentIntent struct {
	ReferenceID string          `json:"referenceId"`
	PublicKey   string          `json:"publicKey"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

type Prefill struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// WidgetRequest is what the payment widget is opened with.
type WidgetRequest struct {
	OrderID   OrderID         `json:"orderId"`
	OrderRef  string          `json:"orderRef"`
	PublicKey string          `json:"publicKey,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Prefill   Prefill         `json:"prefill"`
}

type WidgetOutcome string

const (
	WidgetSuccess   WidgetOutcome = "success"
	WidgetFailure   WidgetOutcome = "failure"
	WidgetDismissed WidgetOutcome = "dismissed"
)

type WidgetResult struct {
	Outcome    WidgetOutcome `json:"outcome"`
	OrderRef   string        `json:"orderRef,omitempty"`
	PaymentRef string        `json:"paymentRef,omitempty"`
	Signature  string        `json:"signature,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

type PaymentVerification struct {
	OrderID            OrderID
	ProviderOrderRef   string
	ProviderPaymentRef string
	ProviderSignature  string
}
