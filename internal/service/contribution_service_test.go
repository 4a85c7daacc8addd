package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

type stubContributionStore struct {
	rows       []models.Contribution
	increments []models.Contribution
	lastFrom   time.Time
	lastTo     time.Time
}

func (s *stubContributionStore) Increment(ctx context.Context, actorID string, kind models.ContributionKind, when time.Time) error {
	s.increments = append(s.increments, models.Contribution{ActorID: actorID, Kind: kind, Day: when, Count: 1})
	return nil
}

func (s *stubContributionStore) ListRange(ctx context.Context, actorID string, from, to time.Time) ([]models.Contribution, error) {
	s.lastFrom, s.lastTo = from, to
	return s.rows, nil
}

func TestContributionSummaryTotals(t *testing.T) {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &stubContributionStore{rows: []models.Contribution{
		{ActorID: "u1", Day: day, Kind: models.ContributionWrite, Count: 3},
		{ActorID: "u1", Day: day.AddDate(0, 0, 1), Kind: models.ContributionWrite, Count: 2},
		{ActorID: "u1", Day: day, Kind: models.ContributionReview, Count: 7},
	}}
	svc := NewContributionService(store, nil)

	summary, err := svc.Summary(context.Background(), "u1", day, day.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Totals[models.ContributionWrite])
	assert.Equal(t, 7, summary.Totals[models.ContributionReview])
	assert.Len(t, summary.Rows, 3)
}

func TestContributionSummaryDefaultRange(t *testing.T) {
	frozen := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	store := &stubContributionStore{}
	svc := NewContributionService(store, nil).
		WithClock(func() time.Time { return frozen })

	summary, err := svc.Summary(context.Background(), "u1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, frozen, summary.To)
	assert.Equal(t, frozen.AddDate(-1, 0, 0), summary.From)
	assert.Equal(t, store.lastFrom, summary.From)
	assert.Equal(t, store.lastTo, summary.To)
}

func TestContributionSummaryInvertedRange(t *testing.T) {
	svc := NewContributionService(&stubContributionStore{}, nil)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Summary(context.Background(), "u1", from, from.AddDate(0, -1, 0))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContributionRecord(t *testing.T) {
	store := &stubContributionStore{}
	svc := NewContributionService(store, nil)

	require.NoError(t, svc.Record(context.Background(), "u1", models.ContributionEdit))
	require.Len(t, store.increments, 1)
	assert.Equal(t, models.ContributionEdit, store.increments[0].Kind)
}
