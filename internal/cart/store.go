package cart

import (
	"github.com/nikolayk812/storefront/internal/domain"
	"golang.org/x/text/currency"
	"slices"
	"sync"
)

// Store is the single source of truth for one session's cart.
// Mutations are serialized and subscribers are notified synchronously, in mutation order,
// after the new state is visible to readers. Subscribers must not mutate the store.
type Store struct {
	writeMu sync.Mutex

	mu       sync.RWMutex
	items    []domain.LineItem
	currency currency.Unit
	version  uint64

	subsMu  sync.Mutex
	subs    []subscriber
	nextSub uint64
}

type subscriber struct {
	id uint64
	fn func(domain.Snapshot)
}

type Option func(*Store)

// WithItems seeds the store, e.g. from a persisted snapshot.
// Rows with an empty id or a non-positive quantity are dropped and duplicate ids are merged.
func WithItems(items []domain.LineItem) Option {
	return func(s *Store) {
		for _, item := range items {
			if item.ID == "" || item.Quantity <= 0 {
				continue
			}
			if i := s.indexOf(item.ID); i >= 0 {
				s.items[i].Quantity += item.Quantity
				continue
			}
			s.items = append(s.items, item)
		}
	}
}

func WithVersion(version uint64) Option {
	return func(s *Store) {
		s.version = version
	}
}

func NewStore(cur currency.Unit, opts ...Option) *Store {
	s := &Store{currency: cur}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) AddItem(in domain.LineItemInput) {
	if in.ID == "" {
		return
	}

	s.mutate(func() bool {
		i := s.indexOf(in.ID)
		if i < 0 {
			s.items = append(s.items, in.LineItem())
			return true
		}

		item := &s.items[i]
		item.Quantity += in.Delta()
		item.UnitPrice = in.UnitPrice
		if in.Name != "" {
			item.Name = in.Name
		}
		if in.DisplayLabel != "" {
			item.DisplayLabel = in.DisplayLabel
		}
		if in.ImageRef != "" {
			item.ImageRef = in.ImageRef
		}
		if in.ColorTag != "" {
			item.ColorTag = in.ColorTag
		}
		return true
	})
}

func (s *Store) IncrementItem(id string) {
	s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.items[i].Quantity++
		return true
	})
}

func (s *Store) DecrementItem(id string) {
	s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.items[i].Quantity--
		if s.items[i].Quantity <= 0 {
			s.items = slices.Delete(s.items, i, i+1)
		}
		return true
	})
}

// UpdateQuantity sets an absolute quantity; values below 1 remove the row.
func (s *Store) UpdateQuantity(id string, quantity int) {
	s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		if quantity <= 0 {
			s.items = slices.Delete(s.items, i, i+1)
			return true
		}
		if s.items[i].Quantity == quantity {
			return false
		}
		s.items[i].Quantity = quantity
		return true
	})
}

func (s *Store) RemoveItem(id string) {
	s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.items = slices.Delete(s.items, i, i+1)
		return true
	})
}

func (s *Store) Clear() {
	s.mutate(func() bool {
		if len(s.items) == 0 {
			return false
		}
		s.items = nil
		return true
	})
}

func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *Store) Currency() currency.Unit {
	return s.currency
}

func (s *Store) TotalItemCount() int {
	return s.Snapshot().TotalItemCount()
}

func (s *Store) TotalPrice() domain.Money {
	return s.Snapshot().TotalPrice()
}

// Quantity returns 0 for ids not in the cart.
func (s *Store) Quantity(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// Subscribe registers fn for every effective change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(domain.Snapshot)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()

			s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
		})
	}
}

func (s *Store) mutate(fn func() bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	changed := fn()
	if changed {
		s.version++
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if !changed {
		return
	}

	s.subsMu.Lock()
	subs := slices.Clone(s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(snapshot)
	}
}

func (s *Store) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Items:    slices.Clone(s.items),
		Currency: s.currency,
		Version:  s.version,
	}
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(item domain.LineItem) bool { return item.ID == id })
}
