package cartview

import (
	"errors"
	"github.com/nikolayk812/storefront/internal/cart"
	"github.com/nikolayk812/storefront/internal/domain"
)

var ErrEmptyCart = errors.New("cart is empty")

// Stepper is the inline quantity control shown next to a single product variant.
type Stepper struct {
	store   *cart.Store
	variant string
}

func NewStepper(store *cart.Store, variantID string) *Stepper {
	return &Stepper{store: store, variant: variantID}
}

func (s *Stepper) Quantity() int {
	return s.store.Quantity(s.variant)
}

func (s *Stepper) InCart() bool {
	return s.Quantity() > 0
}

func (s *Stepper) Add(in domain.LineItemInput) {
	in.ID = s.variant
	s.store.AddItem(in)
}

func (s *Stepper) Increment() {
	s.store.IncrementItem(s.variant)
}

// Decrement at quantity 1 removes the variant.
func (s *Stepper) Decrement() {
	s.store.DecrementItem(s.variant)
}

func (s *Stepper) Remove() {
	s.store.RemoveItem(s.variant)
}

type BarView struct {
	ItemCount int          `json:"itemCount"`
	Total     domain.Money `json:"total"`
	Visible   bool         `json:"visible"`
}

// SummaryBar is the persistent bottom bar; it only reads.
type SummaryBar struct {
	store *cart.Store
}

func NewSummaryBar(store *cart.Store) *SummaryBar {
	return &SummaryBar{store: store}
}

func (b *SummaryBar) View() BarView {
	snapshot := b.store.Snapshot()
	count := snapshot.TotalItemCount()

	return BarView{
		ItemCount: count,
		Total:     snapshot.TotalPrice(),
		Visible:   count > 0,
	}
}

type PanelLine struct {
	Item      domain.LineItem `json:"item"`
	LineTotal domain.Money    `json:"lineTotal"`
}

type PanelView struct {
	Lines       []PanelLine  `json:"lines"`
	ItemCount   int          `json:"itemCount"`
	Total       domain.Money `json:"total"`
	CanCheckout bool         `json:"canCheckout"`
}

// Panel is the full cart listing with per-line controls and the checkout entry point.
type Panel struct {
	store *cart.Store
}

func NewPanel(store *cart.Store) *Panel {
	return &Panel{store: store}
}

func (p *Panel) View() PanelView {
	snapshot := p.store.Snapshot()

	lines := make([]PanelLine, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		lines = append(lines, PanelLine{
			Item:      item,
			LineTotal: domain.NewMoney(item.LineTotal(), snapshot.Currency),
		})
	}

	return PanelView{
		Lines:       lines,
		ItemCount:   snapshot.TotalItemCount(),
		Total:       snapshot.TotalPrice(),
		CanCheckout: !snapshot.IsEmpty(),
	}
}

func (p *Panel) Increment(id string) {
	p.store.IncrementItem(id)
}

func (p *Panel) Decrement(id string) {
	p.store.DecrementItem(id)
}

func (p *Panel) SetQuantity(id string, quantity int) {
	p.store.UpdateQuantity(id, quantity)
}

func (p *Panel) Remove(id string) {
	p.store.RemoveItem(id)
}

// CheckoutEntry returns the snapshot checkout starts from.
func (p *Panel) CheckoutEntry() (domain.Snapshot, error) {
	snapshot := p.store.Snapshot()
	if snapshot.IsEmpty() {
		return domain.Snapshot{}, ErrEmptyCart
	}
	return snapshot, nil
}
