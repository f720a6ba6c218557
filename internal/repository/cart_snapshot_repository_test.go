package repository_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/text/currency"
)

type cartSnapshotRepositorySuite struct {
	suite.Suite

	repo port.SnapshotStore
	pool *pgxpool.Pool
}

// entry point to run the tests in the suite
func TestCartSnapshotRepositorySuite(t *testing.T) {
	suite.Run(t, new(cartSnapshotRepositorySuite))
}

// before all tests in the suite
func (suite *cartSnapshotRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	_, connStr, err := startPostgres(ctx)
	suite.Require().NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.Require().NoError(err)

	suite.repo = repository.NewCartSnapshot(suite.pool)
}

// after all tests in the suite
func (suite *cartSnapshotRepositorySuite) TearDownSuite() {
	if suite.pool != nil {
		suite.pool.Close()
	}
}

func (suite *cartSnapshotRepositorySuite) TestSave() {
	defer suite.deleteAll()

	tests := []struct {
		name      string
		sessionID string
		snapshot  domain.Snapshot
		wantError string
	}{
		{
			name:      "save snapshot: ok",
			sessionID: gofakeit.UUID(),
			snapshot:  randomSnapshot(1),
		},
		{
			name:      "save with empty session ID: error",
			sessionID: "",
			snapshot:  randomSnapshot(1),
			wantError: "sessionID is empty",
		},
		{
			name:      "save zero price item: ok",
			sessionID: gofakeit.UUID(),
			snapshot: domain.Snapshot{
				Items:    []domain.LineItem{{ID: gofakeit.UUID(), UnitPrice: decimal.Zero, Quantity: 1}},
				Currency: currency.INR,
				Version:  3,
			},
		},
		{
			name:      "save preserves decimal precision: ok",
			sessionID: gofakeit.UUID(),
			snapshot: domain.Snapshot{
				Items:    []domain.LineItem{{ID: gofakeit.UUID(), UnitPrice: decimal.RequireFromString("0.0001"), Quantity: 2}},
				Currency: currency.USD,
				Version:  1,
			},
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			err := suite.repo.Save(ctx, tt.sessionID, tt.snapshot)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			loaded, err := suite.repo.Load(ctx, tt.sessionID)
			require.NoError(t, err)
			assertSnapshot(t, tt.snapshot, loaded)
		})
	}
}

func (suite *cartSnapshotRepositorySuite) TestSave_ReplacesItems() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	sessionID := gofakeit.UUID()

	require.NoError(t, suite.repo.Save(ctx, sessionID, randomSnapshot(1)))

	next := randomSnapshot(2)
	require.NoError(t, suite.repo.Save(ctx, sessionID, next))

	loaded, err := suite.repo.Load(ctx, sessionID)
	require.NoError(t, err)
	assertSnapshot(t, next, loaded)
}

func (suite *cartSnapshotRepositorySuite) TestSave_IgnoresStaleVersion() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	sessionID := gofakeit.UUID()

	current := randomSnapshot(5)
	require.NoError(t, suite.repo.Save(ctx, sessionID, current))
	require.NoError(t, suite.repo.Save(ctx, sessionID, randomSnapshot(4)))
	require.NoError(t, suite.repo.Save(ctx, sessionID, randomSnapshot(5)))

	loaded, err := suite.repo.Load(ctx, sessionID)
	require.NoError(t, err)
	assertSnapshot(t, current, loaded)
}

func (suite *cartSnapshotRepositorySuite) TestLoad() {
	defer suite.deleteAll()

	tests := []struct {
		name      string
		sessionID string
		wantErrIs error
		wantError string
	}{
		{
			name:      "load unknown session: not found",
			sessionID: gofakeit.UUID(),
			wantErrIs: port.ErrSnapshotNotFound,
		},
		{
			name:      "load with empty session ID: error",
			sessionID: "",
			wantError: "sessionID is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()

			_, err := suite.repo.Load(t.Context(), tt.sessionID)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.EqualError(t, err, tt.wantError)
		})
	}
}

func (suite *cartSnapshotRepositorySuite) TestDelete() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	sessionID := gofakeit.UUID()

	require.NoError(t, suite.repo.Save(ctx, sessionID, randomSnapshot(1)))
	require.NoError(t, suite.repo.Delete(ctx, sessionID))
	require.NoError(t, suite.repo.Delete(ctx, sessionID))

	_, err := suite.repo.Load(ctx, sessionID)
	require.ErrorIs(t, err, port.ErrSnapshotNotFound)

	var count int
	require.NoError(t, suite.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cart_line_items WHERE session_id = $1", sessionID).Scan(&count))
	assert.Zero(t, count)

	require.EqualError(t, suite.repo.Delete(ctx, ""), "sessionID is empty")
}

func (suite *cartSnapshotRepositorySuite) TestWithTx_Rollback() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	sessionID := gofakeit.UUID()

	tx, err := suite.pool.Begin(ctx)
	require.NoError(t, err)

	txRepo := repository.NewCartSnapshotWithTx(tx)
	require.NoError(t, txRepo.Save(ctx, sessionID, randomSnapshot(1)))

	_, err = txRepo.Load(ctx, sessionID)
	require.NoError(t, err)

	require.NoError(t, tx.Rollback(ctx))

	_, err = suite.repo.Load(ctx, sessionID)
	require.ErrorIs(t, err, port.ErrSnapshotNotFound)
}

func (suite *cartSnapshotRepositorySuite) deleteAll() {
	_, err := suite.pool.Exec(suite.T().Context(), "TRUNCATE TABLE cart_snapshots CASCADE")
	suite.NoError(err)
}
