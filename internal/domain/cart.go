package domain

import (
	"encoding/json"
	"fmt"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"slices"
	"strings"
)

// LineItem is one cart row. ID is the product variant identifier and is unique within a cart.
type LineItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DisplayLabel string          `json:"displayLabel,omitempty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	ImageRef     string          `json:"imageRef,omitempty"`
	ColorTag     string          `json:"colorTag,omitempty"`
	Quantity     int             `json:"quantity"`
}

func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineItemInput is the payload of an add intent. Quantity is a delta; a non-positive value means 1.
type LineItemInput struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DisplayLabel string          `json:"displayLabel,omitempty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	ImageRef     string          `json:"imageRef,omitempty"`
	ColorTag     string          `json:"colorTag,omitempty"`
	Quantity     int             `json:"quantity,omitempty"`
}

func (in LineItemInput) Delta() int {
	if in.Quantity < 1 {
		return 1
	}
	return in.Quantity
}

func (in LineItemInput) LineItem() LineItem {
	return LineItem{
		ID:           in.ID,
		Name:         in.Name,
		DisplayLabel: in.DisplayLabel,
		UnitPrice:    in.UnitPrice,
		ImageRef:     in.ImageRef,
		ColorTag:     in.ColorTag,
		Quantity:     in.Delta(),
	}
}

// ItemQuantity is the only cart information sent to the backend.
type ItemQuantity struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type Snapshot struct {
	Items    []LineItem
	Currency currency.Unit
	Version  uint64
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

func (s Snapshot) TotalItemCount() int {
	var count int
	for _, item := range s.Items {
		count += item.Quantity
	}
	return count
}

func (s Snapshot) TotalPrice() Money {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return NewMoney(total, s.Currency)
}

func (s Snapshot) Find(id string) (LineItem, bool) {
	i := slices.IndexFunc(s.Items, func(item LineItem) bool { return item.ID == id })
	if i < 0 {
		return LineItem{}, false
	}
	return s.Items[i], true
}

func (s Snapshot) Composition() []ItemQuantity {
	result := make([]ItemQuantity, 0, len(s.Items))
	for _, item := range s.Items {
		result = append(result, ItemQuantity{VariantID: item.ID, Quantity: item.Quantity})
	}
	return result
}

// CompositionKey identifies the id/quantity multiset independent of row order.
func (s Snapshot) CompositionKey() string {
	pairs := s.Composition()
	slices.SortFunc(pairs, func(a, b ItemQuantity) int { return strings.Compare(a.VariantID, b.VariantID) })

	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "%s:%d;", p.VariantID, p.Quantity)
	}
	return sb.String()
}

type snapshotJSON struct {
	Items    []LineItem `json:"items"`
	Currency string     `json:"currency"`
	Version  uint64     `json:"version"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(snapshotJSON{Items: items, Currency: s.Currency.String(), Version: s.Version})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	cur, err := ParseCurrency(raw.Currency)
	if err != nil {
		return err
	}

	s.Items = raw.Items
	s.Currency = cur
	s.Version = raw.Version

	return nil
}
