package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/text/currency"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	if err := migrations.Up(connStr); err != nil {
		return nil, "", fmt.Errorf("migrations.Up: %w", err)
	}

	return postgresContainer, connStr, nil
}

func randomSnapshot(version uint64) domain.Snapshot {
	n := gofakeit.Number(1, 4)
	items := make([]domain.LineItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, randomLineItem())
	}

	return domain.Snapshot{
		Items:    items,
		Currency: randomCurrency(),
		Version:  version,
	}
}

func randomLineItem() domain.LineItem {
	return domain.LineItem{
		ID:           gofakeit.UUID(),
		Name:         gofakeit.ProductName(),
		DisplayLabel: gofakeit.Color(),
		UnitPrice:    decimal.NewFromFloat(gofakeit.Price(1, 1000)).Round(2),
		ImageRef:     gofakeit.URL(),
		ColorTag:     gofakeit.HexColor(),
		Quantity:     gofakeit.Number(1, 10),
	}
}

func randomCurrency() currency.Unit {
	var (
		result currency.Unit
		err    error
	)

	for {
		// tag is not a recognized currency
		result, err = currency.ParseISO(gofakeit.CurrencyShort())
		if err == nil {
			break
		}
	}

	return result
}

func assertSnapshot(t *testing.T, expected, actual domain.Snapshot) {
	t.Helper()

	currencyComparer := cmp.Comparer(func(x, y currency.Unit) bool {
		return x.String() == y.String()
	})

	opts := cmp.Options{
		currencyComparer,
		cmpopts.EquateEmpty(),
	}

	diff := cmp.Diff(expected, actual, opts)
	assert.Empty(t, diff)
}
