package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quillhub/moderation-api/internal/models"
)

// ContributionRepository stores per-actor, per-day activity counters.
type ContributionRepository struct {
	db *sqlx.DB
}

// NewContributionRepository constructs the repository.
func NewContributionRepository(db *sqlx.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Increment adds one to the (actor, day, kind) counter, creating the row on
// first use. The upsert keeps the increment atomic under concurrent callers;
// a read-modify-write here would lose counts.
func (r *ContributionRepository) Increment(ctx context.Context, actorID string, kind models.ContributionKind, when time.Time) error {
	day := when.UTC().Truncate(24 * time.Hour)
	const query = `INSERT INTO contributions (actor_id, day, month, year, kind, count)
	VALUES ($1, $2, $3, $4, $5, 1)
	ON CONFLICT (actor_id, day, kind) DO UPDATE SET count = contributions.count + 1`
	if _, err := r.db.ExecContext(ctx, query, actorID, day, int(day.Month()), day.Year(), kind); err != nil {
		return fmt.Errorf("increment contribution: %w", err)
	}
	return nil
}

// ListRange returns counter rows for an actor within [from, to], oldest first.
func (r *ContributionRepository) ListRange(ctx context.Context, actorID string, from, to time.Time) ([]models.Contribution, error) {
	const query = `SELECT actor_id, day, month, year, kind, count FROM contributions
	WHERE actor_id = $1 AND day >= $2 AND day <= $3 ORDER BY day ASC, kind ASC`
	var rows []models.Contribution
	if err := r.db.SelectContext(ctx, &rows, query, actorID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return rows, nil
}
