package httpapi

import (
	"context"
	"fmt"
	"github.com/nikolayk812/storefront/internal/cart"
	"github.com/nikolayk812/storefront/internal/cartview"
	"github.com/nikolayk812/storefront/internal/checkout"
	"github.com/nikolayk812/storefront/internal/port"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/currency"
	"sync"
	"sync/atomic"
	"time"
)

// Session is one browsing session: its cart, the consumers reading it and the checkout driving it.
type Session struct {
	ID       string
	Store    *cart.Store
	Panel    *cartview.Panel
	Bar      *cartview.SummaryBar
	Checkout *checkout.Orchestrator

	lastSeen atomic.Int64
	detach   func()
}

func (s *Session) Stepper(variantID string) *cartview.Stepper {
	return cartview.NewStepper(s.Store, variantID)
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

func (s *Session) close() {
	s.Checkout.Close()
	s.detach()
}

type RegistryConfig struct {
	Currency    currency.Unit
	Snapshots   port.SnapshotStore
	API         port.ShopAPI
	Checkout    checkout.Options
	IdleTimeout time.Duration
	Now         func() time.Time
}

// Registry keeps live sessions in memory. Carts outlive their session through the snapshot store.
type Registry struct {
	cfg    RegistryConfig
	logger *zap.Logger
	group  singleflight.Group

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cfg RegistryConfig, logger *zap.Logger) (*Registry, error) {
	if cfg.Snapshots == nil {
		return nil, fmt.Errorf("snapshots is nil")
	}
	if cfg.API == nil {
		return nil, fmt.Errorf("api is nil")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Registry{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Get returns the live session for id, restoring its cart from the snapshot store on first use.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("sessionID is empty")
	}

	if s := r.lookup(id); s != nil {
		return s, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		if s := r.lookup(id); s != nil {
			return s, nil
		}

		store := cart.Restore(ctx, id, r.cfg.Snapshots, r.cfg.Currency, r.logger)

		opts := r.cfg.Checkout
		opts.SessionID = id

		s := &Session{
			ID:       id,
			Store:    store,
			Panel:    cartview.NewPanel(store),
			Bar:      cartview.NewSummaryBar(store),
			Checkout: checkout.New(store, r.cfg.API, opts, r.logger),
			detach:   cart.Persist(ctx, store, id, r.cfg.Snapshots, r.logger),
		}
		s.touch(r.cfg.Now())

		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()

		r.logger.Debug("Session opened", zap.String("session_id", id), zap.Int("items", store.TotalItemCount()))

		return s, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Session), nil
}

func (r *Registry) lookup(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.touch(r.cfg.Now())
	}
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Sweep drops sessions idle for longer than IdleTimeout. Sessions whose checkout is placing an
// order, awaiting payment confirmation or verifying are kept.
func (r *Registry) Sweep() int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}

	now := r.cfg.Now()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince(now) < r.cfg.IdleTimeout {
			continue
		}
		if state := s.Checkout.State(); state.Phase.Pending() || state.Verifying {
			continue
		}
		delete(r.sessions, id)
		expired = append(expired, s)
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
	}

	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("Idle sessions closed", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
