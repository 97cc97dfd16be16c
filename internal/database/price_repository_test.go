package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// MockPoolAdapter wraps pgxmock.PgxPoolIface to implement DatabasePool interface
type MockPoolAdapter struct {
	mock pgxmock.PgxPoolIface
}

func NewMockPoolAdapter(mock pgxmock.PgxPoolIface) DatabasePool {
	return &MockPoolAdapter{mock: mock}
}

func (m *MockPoolAdapter) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return m.mock.QueryRow(ctx, sql, args...)
}

func (m *MockPoolAdapter) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	result, err := m.mock.Exec(ctx, sql, args...)
	if err == nil {
		rows := result.RowsAffected()
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", rows)), nil
	}
	return pgconn.CommandTag{}, err
}

func (m *MockPoolAdapter) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return m.mock.Query(ctx, sql, args...)
}

func setupRepoTest(t *testing.T) (*PriceRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPriceRepository(NewMockPoolAdapter(mockPool)), mockPool
}

func TestPriceRepository_InsertObservation(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	observedAt := time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC)
	price := decimal.NewFromFloat(78.4)

	rows := pgxmock.NewRows([]string{"id", "node", "hour", "price", "source", "observed_at", "created_at"}).
		AddRow(int64(1), "Maitencillo", 20, price, models.SourceFeed, observedAt, observedAt)
	mockPool.ExpectQuery("INSERT INTO price_observations").
		WithArgs("Maitencillo", 20, price, models.SourceFeed, observedAt).
		WillReturnRows(rows)

	obs, err := repo.InsertObservation(context.Background(), "Maitencillo", 20, price, models.SourceFeed, observedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), obs.ID)
	assert.Equal(t, "Maitencillo", obs.Node)
	assert.Equal(t, 20, obs.Hour)
	assert.True(t, price.Equal(obs.Price))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPriceRepository_InsertObservation_Error(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	mockPool.ExpectQuery("INSERT INTO price_observations").
		WillReturnError(errors.New("connection refused"))

	obs, err := repo.InsertObservation(context.Background(), "Maitencillo", 20,
		decimal.NewFromFloat(78.4), models.SourceFeed, time.Now())
	assert.Error(t, err)
	assert.Nil(t, obs)
	assert.Contains(t, err.Error(), "failed to insert price observation")
}

func TestPriceRepository_RecentObservations(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "node", "hour", "price", "source", "observed_at", "created_at"}).
		AddRow(int64(1), "Maitencillo", 13, decimal.NewFromFloat(24.1), models.SourceFeed, now.Add(-2*time.Hour), now).
		AddRow(int64(2), "Maitencillo", 14, decimal.NewFromFloat(22.8), models.SourceFeed, now.Add(-time.Hour), now).
		AddRow(int64(3), "Maitencillo", 15, decimal.NewFromFloat(21.3), models.SourceFeed, now, now)
	mockPool.ExpectQuery("SELECT id, node, hour, price, source, observed_at, created_at").
		WithArgs("Maitencillo", 192).
		WillReturnRows(rows)

	observations, err := repo.RecentObservations(context.Background(), "Maitencillo", 192)
	require.NoError(t, err)
	require.Len(t, observations, 3)

	// Oldest first, ready to replay into a predictor
	assert.Equal(t, 13, observations[0].Hour)
	assert.Equal(t, 15, observations[2].Hour)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPriceRepository_RecentObservations_Empty(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	rows := pgxmock.NewRows([]string{"id", "node", "hour", "price", "source", "observed_at", "created_at"})
	mockPool.ExpectQuery("SELECT id, node, hour, price, source, observed_at, created_at").
		WithArgs("Quillota", 192).
		WillReturnRows(rows)

	observations, err := repo.RecentObservations(context.Background(), "Quillota", 192)
	require.NoError(t, err)
	assert.Empty(t, observations)
}

func TestPriceRepository_LatestObservation_NoRows(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	mockPool.ExpectQuery("SELECT id, node, hour, price, source, observed_at, created_at").
		WithArgs("Quillota").
		WillReturnError(pgx.ErrNoRows)

	obs, err := repo.LatestObservation(context.Background(), "Quillota")
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestPriceRepository_PruneObservations(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	cutoff := time.Now().AddDate(0, 0, -30)
	mockPool.ExpectExec("DELETE FROM price_observations").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 48))

	removed, err := repo.PruneObservations(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(48), removed)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPriceRepository_PruneObservations_Error(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	mockPool.ExpectExec("DELETE FROM price_observations").
		WillReturnError(errors.New("relation does not exist"))

	removed, err := repo.PruneObservations(context.Background(), time.Now())
	assert.Error(t, err)
	assert.Zero(t, removed)
}

func TestPriceRepository_NodeStats_NoRows(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	mockPool.ExpectQuery("SELECT").
		WithArgs("Quillota", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	stats, err := repo.NodeStats(context.Background(), "Quillota", time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, "Quillota", stats.Node)
	assert.Zero(t, stats.Count)
}

func TestPriceRepository_StorePlan(t *testing.T) {
	repo, mockPool := setupRepoTest(t)

	plan := &models.StoredDispatchPlan{
		ID:               "plan-001",
		Node:             "Maitencillo",
		CapacityKwh:      decimal.NewFromInt(1000),
		Efficiency:       decimal.NewFromFloat(0.92),
		ProjectedRevenue: decimal.NewFromInt(144200),
		ProjectedCost:    decimal.NewFromInt(52300),
		ProjectedNet:     decimal.NewFromInt(91900),
		NChargeHours:     5,
		NDischargeHours:  4,
		Schedule:         []byte(`[]`),
		GeneratedAt:      time.Now(),
	}

	mockPool.ExpectExec("INSERT INTO dispatch_plans").
		WithArgs(plan.ID, plan.Node, plan.CapacityKwh, plan.Efficiency,
			plan.ProjectedRevenue, plan.ProjectedCost, plan.ProjectedNet,
			plan.NChargeHours, plan.NDischargeHours, plan.Schedule, plan.GeneratedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.StorePlan(context.Background(), plan)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
