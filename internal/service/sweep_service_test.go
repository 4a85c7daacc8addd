package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/pkg/config"
)

type sweepContentStub struct {
	*stubContentStore
	batches map[models.ReviewStatus][]models.ContentItem
	filters []models.SweepFilter
}

func (s *sweepContentStub) ListStale(ctx context.Context, filter models.SweepFilter) ([]models.ContentItem, error) {
	s.filters = append(s.filters, filter)
	return s.batches[filter.Status[0]], nil
}

type sweepRunnerStub struct {
	unassigned []string
	discarded  []string
	failIDs    map[string]bool
	reasons    []string
}

func (s *sweepRunnerStub) Unassign(ctx context.Context, id string, actor Actor) (*models.ContentItem, error) {
	if s.failIDs[id] {
		return nil, errors.New("row busy")
	}
	s.unassigned = append(s.unassigned, id)
	return &models.ContentItem{ID: id}, nil
}

func (s *sweepRunnerStub) Discard(ctx context.Context, id string, actor Actor, reason string) (*models.ContentItem, error) {
	if s.failIDs[id] {
		return nil, errors.New("row busy")
	}
	s.discarded = append(s.discarded, id)
	s.reasons = append(s.reasons, reason)
	return &models.ContentItem{ID: id}, nil
}

func sweepConfig() config.ReviewConfig {
	return config.ReviewConfig{
		StaleAssignedAfter:  30 * 24 * time.Hour,
		StaleUnclaimedAfter: 60 * 24 * time.Hour,
		SweepInterval:       24 * time.Hour,
		SweepBatchSize:      100,
	}
}

func TestSweepRunOnceCutoffs(t *testing.T) {
	frozen := time.Date(2026, 3, 15, 4, 0, 0, 0, time.UTC)
	content := &sweepContentStub{stubContentStore: &stubContentStore{}, batches: map[models.ReviewStatus][]models.ContentItem{}}
	runner := &sweepRunnerStub{}

	svc := NewSweepService(content, runner, sweepConfig(), nil).
		WithClock(func() time.Time { return frozen })

	result := svc.RunOnce(context.Background())
	assert.Equal(t, SweepResult{}, result)

	require.Len(t, content.filters, 2)

	assigned := content.filters[0]
	assert.Equal(t, []models.ReviewStatus{models.StatusInProgress}, assigned.Status)
	assert.Equal(t, frozen.Add(-30*24*time.Hour), assigned.UpdatedBefore)
	assert.Equal(t, 100, assigned.Limit)

	unclaimed := content.filters[1]
	assert.Equal(t, []models.ReviewStatus{models.StatusUnassigned, models.StatusReviewPending}, unclaimed.Status)
	assert.Equal(t, frozen.Add(-60*24*time.Hour), unclaimed.UpdatedBefore)
}

func TestSweepRunOnceCounts(t *testing.T) {
	content := &sweepContentStub{
		stubContentStore: &stubContentStore{},
		batches: map[models.ReviewStatus][]models.ContentItem{
			models.StatusInProgress: {{ID: "a"}, {ID: "b"}},
			models.StatusUnassigned: {{ID: "c"}, {ID: "d"}, {ID: "e"}},
		},
	}
	runner := &sweepRunnerStub{}

	result := NewSweepService(content, runner, sweepConfig(), nil).RunOnce(context.Background())

	assert.Equal(t, SweepResult{Unassigned: 2, Discarded: 3}, result)
	assert.Equal(t, []string{"a", "b"}, runner.unassigned)
	assert.Equal(t, []string{"c", "d", "e"}, runner.discarded)
	require.NotEmpty(t, runner.reasons)
	assert.Equal(t, "no moderator action within 60 days", runner.reasons[0])
}

func TestSweepRunOnceSkipsFailedItems(t *testing.T) {
	content := &sweepContentStub{
		stubContentStore: &stubContentStore{},
		batches: map[models.ReviewStatus][]models.ContentItem{
			models.StatusInProgress: {{ID: "a"}, {ID: "b"}, {ID: "c"}},
			models.StatusUnassigned: {{ID: "d"}, {ID: "e"}},
		},
	}
	runner := &sweepRunnerStub{failIDs: map[string]bool{"b": true, "d": true}}

	result := NewSweepService(content, runner, sweepConfig(), nil).RunOnce(context.Background())

	assert.Equal(t, SweepResult{Unassigned: 2, Discarded: 1}, result)
	assert.Equal(t, []string{"a", "c"}, runner.unassigned)
	assert.Equal(t, []string{"e"}, runner.discarded)
}
