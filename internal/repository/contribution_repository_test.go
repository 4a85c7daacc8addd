package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/moderation-api/internal/models"
)

func TestContributionIncrementUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContributionRepository(db)

	when := time.Date(2026, 7, 4, 15, 30, 0, 0, time.UTC)
	day := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("(?s)INSERT INTO contributions .+ ON CONFLICT \\(actor_id, day, kind\\) DO UPDATE").
		WithArgs("u1", day, 7, 2026, string(models.ContributionWrite)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Increment(context.Background(), "u1", models.ContributionWrite, when))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContributionListRange(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContributionRepository(db)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"actor_id", "day", "month", "year", "kind", "count"}).
		AddRow("u1", from, 1, 2026, string(models.ContributionWrite), 3).
		AddRow("u1", from.AddDate(0, 1, 0), 2, 2026, string(models.ContributionReview), 1)

	mock.ExpectQuery("(?s)SELECT .+ FROM contributions\\s+WHERE actor_id = \\$1 AND day >= \\$2 AND day <= \\$3").
		WithArgs("u1", from, to).
		WillReturnRows(rows)

	list, err := repo.ListRange(context.Background(), "u1", from, to)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 3, list[0].Count)
	assert.Equal(t, models.ContributionReview, list[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
