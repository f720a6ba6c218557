package repository

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/shopspring/decimal"
)

type cartSnapshotRepository struct {
	q    querier
	pool *pgxpool.Pool
}

func NewCartSnapshot(pool *pgxpool.Pool) port.SnapshotStore {
	return &cartSnapshotRepository{
		q:    pool,
		pool: pool,
	}
}

func NewCartSnapshotWithTx(tx pgx.Tx) port.SnapshotStore {
	return &cartSnapshotRepository{
		q:    tx,
		pool: nil, // use provided transaction instead
	}
}

const (
	selectSnapshotSQL = `SELECT currency, version FROM cart_snapshots WHERE session_id = $1`

	selectLineItemsSQL = `
SELECT variant_id, name, display_label, unit_price::text, image_ref, color_tag, quantity
FROM cart_line_items
WHERE session_id = $1
ORDER BY position`

	lockVersionSQL = `SELECT version FROM cart_snapshots WHERE session_id = $1 FOR UPDATE`

	upsertSnapshotSQL = `
INSERT INTO cart_snapshots (session_id, currency, version, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (session_id) DO UPDATE
SET currency = EXCLUDED.currency, version = EXCLUDED.version, updated_at = NOW()`

	deleteLineItemsSQL = `DELETE FROM cart_line_items WHERE session_id = $1`

	insertLineItemSQL = `
INSERT INTO cart_line_items (session_id, position, variant_id, name, display_label, unit_price, image_ref, color_tag, quantity)
VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, $9)`

	deleteSnapshotSQL = `DELETE FROM cart_snapshots WHERE session_id = $1`
)

func (r *cartSnapshotRepository) Load(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	if sessionID == "" {
		return domain.Snapshot{}, fmt.Errorf("sessionID is empty")
	}

	return withTx(ctx, r.pool, r.q, func(q querier) (domain.Snapshot, error) {
		var (
			currencyCode string
			version      int64
		)

		err := q.QueryRow(ctx, selectSnapshotSQL, sessionID).Scan(&currencyCode, &version)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, port.ErrSnapshotNotFound
		}
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("q.QueryRow: %w", err)
		}

		cur, err := domain.ParseCurrency(currencyCode)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("domain.ParseCurrency: %w", err)
		}

		rows, err := q.Query(ctx, selectLineItemsSQL, sessionID)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("q.Query: %w", err)
		}

		items, err := pgx.CollectRows(rows, mapLineItemRowToDomain)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("pgx.CollectRows: %w", err)
		}

		return domain.Snapshot{
			Items:    items,
			Currency: cur,
			Version:  uint64(version),
		}, nil
	})
}

// Save replaces the stored line items. Snapshots not newer than the stored version are ignored.
func (r *cartSnapshotRepository) Save(ctx context.Context, sessionID string, snapshot domain.Snapshot) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	_, err := withTx(ctx, r.pool, r.q, func(q querier) (struct{}, error) {
		var current int64

		err := q.QueryRow(ctx, lockVersionSQL, sessionID).Scan(&current)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return struct{}{}, fmt.Errorf("q.QueryRow: %w", err)
		case uint64(current) >= snapshot.Version:
			return struct{}{}, nil
		}

		if _, err := q.Exec(ctx, upsertSnapshotSQL, sessionID, snapshot.Currency.String(), int64(snapshot.Version)); err != nil {
			return struct{}{}, fmt.Errorf("q.Exec upsert: %w", err)
		}

		if _, err := q.Exec(ctx, deleteLineItemsSQL, sessionID); err != nil {
			return struct{}{}, fmt.Errorf("q.Exec delete: %w", err)
		}

		if len(snapshot.Items) == 0 {
			return struct{}{}, nil
		}

		batch := &pgx.Batch{}
		for i, item := range snapshot.Items {
			batch.Queue(insertLineItemSQL,
				sessionID, i, item.ID, item.Name, item.DisplayLabel,
				item.UnitPrice.String(), item.ImageRef, item.ColorTag, item.Quantity)
		}

		br := q.SendBatch(ctx, batch)
		for range snapshot.Items {
			if _, err := br.Exec(); err != nil {
				return struct{}{}, errors.Join(fmt.Errorf("br.Exec: %w", err), br.Close())
			}
		}
		if err := br.Close(); err != nil {
			return struct{}{}, fmt.Errorf("br.Close: %w", err)
		}

		return struct{}{}, nil
	})

	return err
}

func (r *cartSnapshotRepository) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	if _, err := r.q.Exec(ctx, deleteSnapshotSQL, sessionID); err != nil {
		return fmt.Errorf("q.Exec: %w", err)
	}

	return nil
}

func mapLineItemRowToDomain(row pgx.CollectableRow) (domain.LineItem, error) {
	var (
		item      domain.LineItem
		unitPrice string
	)

	if err := row.Scan(&item.ID, &item.Name, &item.DisplayLabel, &unitPrice, &item.ImageRef, &item.ColorTag, &item.Quantity); err != nil {
		return domain.LineItem{}, fmt.Errorf("row.Scan: %w", err)
	}

	price, err := decimal.NewFromString(unitPrice)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("unit_price[%s] is not valid: %w", unitPrice, err)
	}
	item.UnitPrice = price

	return item, nil
}
