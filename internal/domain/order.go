package domain

import (
	"bytes"
	"encoding/json"
	"github.com/shopspring/decimal"
	"strconv"
	"time"
)

// OrderID is opaque. The backend may send it as a JSON number or string; ids in canonical
// decimal form are echoed back as numbers, anything else (e.g. "007") as strings.
type OrderID string

func (id OrderID) String() string {
	return string(id)
}

func (id OrderID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseUint(string(id), 10, 64); err == nil && strconv.FormatUint(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OrderID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = OrderID(n.String())

	return nil
}

type PreviewItem struct {
	VariantID string          `json:"variantId"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CheckoutPreview is the backend's priced view of the cart. Its amounts are authoritative.
type CheckoutPreview struct {
	Items          []PreviewItem   `json:"items"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	PayableAmount  decimal.Decimal `json:"payableAmount"`
	Address        *Address        `json:"address,omitempty"`
}

type OrderRequest struct {
	Address        Address
	Items          []ItemQuantity
	IdempotencyKey string
}

type PlacedOrder struct {
	OrderID       OrderID         `json:"orderId"`
	PayableAmount decimal.Decimal `json:"payableAmount"`
}

type OrderLine struct {
	VariantID string          `json:"variantId"`
	Name      string          `json:"name,omitempty"`
	ImageRef  string          `json:"imageRef,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderDetails struct {
	ID             OrderID         `json:"id"`
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"paymentStatus"`
	Items          []OrderLine     `json:"items"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	PayableAmount  decimal.Decimal `json:"payableAmount"`
	Address        *Address        `json:"address,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}
