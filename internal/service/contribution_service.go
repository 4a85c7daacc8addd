package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

type contributionStore interface {
	Increment(ctx context.Context, actorID string, kind models.ContributionKind, when time.Time) error
	ListRange(ctx context.Context, actorID string, from, to time.Time) ([]models.Contribution, error)
}

// ContributionService tracks per-actor activity counters and serves the
// roll-ups behind the contribution graph.
type ContributionService struct {
	store  contributionStore
	logger *zap.Logger
	now    func() time.Time
}

func NewContributionService(store contributionStore, logger *zap.Logger) *ContributionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContributionService{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *ContributionService) WithClock(now func() time.Time) *ContributionService {
	s.now = now
	return s
}

// Record adds one unit of activity for the actor. Counter writes ride behind
// publish side effects, so errors are returned for the caller to log rather
// than surfaced to the end user.
func (s *ContributionService) Record(ctx context.Context, actorID string, kind models.ContributionKind) error {
	if err := s.store.Increment(ctx, actorID, kind, s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record contribution")
	}
	return nil
}

// Summary rolls up an actor's counters over [from, to]. A zero range defaults
// to the trailing year, matching the contribution graph window.
func (s *ContributionService) Summary(ctx context.Context, actorID string, from, to time.Time) (*models.ContributionSummary, error) {
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(-1, 0, 0)
	}
	if from.After(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	rows, err := s.store.ListRange(ctx, actorID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contributions")
	}
	summary := &models.ContributionSummary{
		ActorID: actorID,
		From:    from,
		To:      to,
		Totals:  make(map[models.ContributionKind]int),
		Rows:    rows,
	}
	for _, row := range rows {
		summary.Totals[row.Kind] += row.Count
	}
	return summary, nil
}
