package port

import (
	"context"
	"errors"
	"github.com/nikolayk812/storefront/internal/domain"
)

var ErrSnapshotNotFound = errors.New("cart snapshot not found")

type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) (domain.Snapshot, error)
	Save(ctx context.Context, sessionID string, snapshot domain.Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}
