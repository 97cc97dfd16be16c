package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PriceRepository handles database operations for spot price observations
// and stored dispatch plans.
type PriceRepository struct {
	pool DatabasePool
}

// NewPriceRepository creates a new price repository.
func NewPriceRepository(pool DatabasePool) *PriceRepository {
	return &PriceRepository{
		pool: pool,
	}
}

// InsertObservation stores one observed spot price for a node.
func (r *PriceRepository) InsertObservation(ctx context.Context, node string, hour int, price decimal.Decimal, source string, observedAt time.Time) (*models.PriceObservation, error) {
	query := `
		INSERT INTO price_observations (node, hour, price, source, observed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, node, hour, price, source, observed_at, created_at
	`

	var obs models.PriceObservation
	err := r.pool.QueryRow(ctx, query, node, hour, price, source, observedAt).Scan(
		&obs.ID,
		&obs.Node,
		&obs.Hour,
		&obs.Price,
		&obs.Source,
		&obs.ObservedAt,
		&obs.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert price observation: %w", err)
	}

	return &obs, nil
}

// RecentObservations returns up to limit observations for a node, oldest
// first, suitable for seeding a predictor's rolling history on boot.
func (r *PriceRepository) RecentObservations(ctx context.Context, node string, limit int) ([]models.PriceObservation, error) {
	query := `
		SELECT id, node, hour, price, source, observed_at, created_at
		FROM (
			SELECT id, node, hour, price, source, observed_at, created_at
			FROM price_observations
			WHERE node = $1
			ORDER BY observed_at DESC
			LIMIT $2
		) recent
		ORDER BY observed_at ASC
	`

	rows, err := r.pool.Query(ctx, query, node, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent observations: %w", err)
	}
	defer rows.Close()

	var observations []models.PriceObservation
	for rows.Next() {
		var obs models.PriceObservation
		if err := rows.Scan(
			&obs.ID,
			&obs.Node,
			&obs.Hour,
			&obs.Price,
			&obs.Source,
			&obs.ObservedAt,
			&obs.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}

	return observations, nil
}

// LatestObservation returns the most recent observation for a node, or
// nil when the node has no stored history.
func (r *PriceRepository) LatestObservation(ctx context.Context, node string) (*models.PriceObservation, error) {
	query := `
		SELECT id, node, hour, price, source, observed_at, created_at
		FROM price_observations
		WHERE node = $1
		ORDER BY observed_at DESC
		LIMIT 1
	`

	var obs models.PriceObservation
	err := r.pool.QueryRow(ctx, query, node).Scan(
		&obs.ID,
		&obs.Node,
		&obs.Hour,
		&obs.Price,
		&obs.Source,
		&obs.ObservedAt,
		&obs.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest observation: %w", err)
	}

	return &obs, nil
}

// PruneObservations deletes observations older than the cutoff and
// returns how many rows were removed.
func (r *PriceRepository) PruneObservations(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM price_observations WHERE observed_at < $1`

	tag, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune observations: %w", err)
	}

	return tag.RowsAffected(), nil
}

// NodeStats aggregates stored observations for a node since the cutoff.
func (r *PriceRepository) NodeStats(ctx context.Context, node string, since time.Time) (*models.NodePriceStats, error) {
	query := `
		SELECT
			node,
			COUNT(*) AS count,
			COALESCE(AVG(price), 0) AS mean_price,
			COALESCE(STDDEV_SAMP(price), 0) AS stddev_price,
			COALESCE(MIN(price), 0) AS min_price,
			COALESCE(MAX(price), 0) AS max_price,
			MIN(observed_at) AS first_seen,
			MAX(observed_at) AS last_seen
		FROM price_observations
		WHERE node = $1 AND observed_at >= $2
		GROUP BY node
	`

	var stats models.NodePriceStats
	err := r.pool.QueryRow(ctx, query, node, since).Scan(
		&stats.Node,
		&stats.Count,
		&stats.MeanPrice,
		&stats.StdDevPrice,
		&stats.MinPrice,
		&stats.MaxPrice,
		&stats.FirstSeen,
		&stats.LastSeen,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NodePriceStats{Node: node}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node stats: %w", err)
	}

	return &stats, nil
}

// StorePlan persists a computed dispatch plan with its full schedule as
// JSONB for later review.
func (r *PriceRepository) StorePlan(ctx context.Context, plan *models.StoredDispatchPlan) error {
	query := `
		INSERT INTO dispatch_plans (
			id, node, capacity_kwh, efficiency,
			projected_revenue, projected_cost, projected_net,
			n_charge_hours, n_discharge_hours, schedule, generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		plan.ID,
		plan.Node,
		plan.CapacityKwh,
		plan.Efficiency,
		plan.ProjectedRevenue,
		plan.ProjectedCost,
		plan.ProjectedNet,
		plan.NChargeHours,
		plan.NDischargeHours,
		plan.Schedule,
		plan.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store dispatch plan: %w", err)
	}

	return nil
}
