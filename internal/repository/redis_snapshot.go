package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/redis/go-redis/v9"
	"time"
)

const DefaultSnapshotTTL = 7 * 24 * time.Hour

type redisSnapshot struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSnapshot stores each session's snapshot as one JSON value that expires after ttl.
func NewRedisSnapshot(client redis.UniversalClient, ttl time.Duration) port.SnapshotStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}

	return &redisSnapshot{
		client: client,
		ttl:    ttl,
	}
}

func (r *redisSnapshot) Load(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	if sessionID == "" {
		return domain.Snapshot{}, fmt.Errorf("sessionID is empty")
	}

	data, err := r.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, port.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("client.Get: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return snapshot, nil
}

// Save writes snapshot unless a newer version is already stored.
func (r *redisSnapshot) Save(ctx context.Context, sessionID string, snapshot domain.Snapshot) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	key := snapshotKey(sessionID)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("tx.Get: %w", err)
		default:
			var current struct {
				Version uint64 `json:"version"`
			}
			if err := json.Unmarshal(stored, &current); err == nil && current.Version >= snapshot.Version {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("client.Watch: %w", err)
	}

	return nil
}

func (r *redisSnapshot) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	if err := r.client.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("client.Del: %w", err)
	}

	return nil
}

func snapshotKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
