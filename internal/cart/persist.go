package cart

import (
	"context"
	"errors"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"sync"
	"time"
)

const saveTimeout = 2 * time.Second

// saver writes snapshots of one session from a single goroutine. Only the latest pending
// snapshot is kept, so a slow store never blocks cart mutations and writes stay ordered.
type saver struct {
	ctx       context.Context
	sessionID string
	snapshots port.SnapshotStore
	logger    *zap.Logger

	mu      sync.Mutex
	pending *domain.Snapshot

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// Persist saves every new snapshot of store under sessionID. An emptied cart is deleted.
// Failures are logged only; the in-memory cart stays authoritative. The returned func
// detaches from the store and waits for the last pending snapshot to be written.
func Persist(ctx context.Context, store *Store, sessionID string, snapshots port.SnapshotStore, logger *zap.Logger) func() {
	s := &saver{
		ctx:       context.WithoutCancel(ctx),
		sessionID: sessionID,
		snapshots: snapshots,
		logger:    logger,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	unsubscribe := store.Subscribe(s.enqueue)
	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(s.done)
			<-s.stopped
		})
	}
}

func (s *saver) enqueue(snapshot domain.Snapshot) {
	s.mu.Lock()
	s.pending = &snapshot
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *saver) run() {
	defer close(s.stopped)

	for {
		select {
		case <-s.wake:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *saver) flush() {
	s.mu.Lock()
	snapshot := s.pending
	s.pending = nil
	s.mu.Unlock()

	if snapshot == nil {
		return
	}

	saveCtx, cancel := context.WithTimeout(s.ctx, saveTimeout)
	defer cancel()

	var err error
	if snapshot.IsEmpty() {
		err = s.snapshots.Delete(saveCtx, s.sessionID)
	} else {
		err = s.snapshots.Save(saveCtx, s.sessionID, *snapshot)
	}
	if err != nil {
		s.logger.Warn("Failed to persist cart snapshot",
			zap.String("session_id", s.sessionID),
			zap.Uint64("version", snapshot.Version),
			zap.Error(err))
	}
}

// Restore rebuilds a store from the saved snapshot, or returns an empty one.
func Restore(ctx context.Context, sessionID string, snapshots port.SnapshotStore, cur currency.Unit, logger *zap.Logger) *Store {
	snapshot, err := snapshots.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, port.ErrSnapshotNotFound) {
			logger.Warn("Failed to load cart snapshot", zap.String("session_id", sessionID), zap.Error(err))
		}
		return NewStore(cur)
	}

	if snapshot.Currency != cur {
		logger.Warn("Discarding cart snapshot with foreign currency",
			zap.String("session_id", sessionID),
			zap.Stringer("currency", snapshot.Currency))
		return NewStore(cur)
	}

	return NewStore(cur, WithItems(snapshot.Items), WithVersion(snapshot.Version))
}
