package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/pkg/config"
)

// reviewRunner is the subset of ReviewService the sweeper drives.
type reviewRunner interface {
	Unassign(ctx context.Context, id string, actor Actor) (*models.ContentItem, error)
	Discard(ctx context.Context, id string, actor Actor, reason string) (*models.ContentItem, error)
}

// SweepService runs the daily maintenance pass over the moderation queue.
// Assignments idle past the stale-assigned cutoff are returned to the queue;
// items nobody has touched past the stale-unclaimed cutoff are discarded.
type SweepService struct {
	content contentStore
	reviews reviewRunner
	cfg     config.ReviewConfig
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

func NewSweepService(content contentStore, reviews reviewRunner, cfg config.ReviewConfig, logger *zap.Logger) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{
		content: content,
		reviews: reviews,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *SweepService) WithClock(now func() time.Time) *SweepService {
	s.now = now
	return s
}

// WithMetrics attaches sweep counters.
func (s *SweepService) WithMetrics(metrics *MetricsService) *SweepService {
	s.metrics = metrics
	return s
}

// Start launches the periodic sweep. It runs once immediately and then on
// every tick until ctx is cancelled.
func (s *SweepService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("sweep scheduler stopped")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
	s.logger.Info("sweep scheduler started",
		zap.Duration("interval", s.cfg.SweepInterval),
		zap.Duration("stale_assigned_after", s.cfg.StaleAssignedAfter),
		zap.Duration("stale_unclaimed_after", s.cfg.StaleUnclaimedAfter))
}

// SweepResult reports how many items each pass touched.
type SweepResult struct {
	Unassigned int `json:"unassigned"`
	Discarded  int `json:"discarded"`
}

// RunOnce executes a single sweep pass. Per-item failures are logged and
// skipped so one stuck row cannot stall the rest of the batch; a failed item
// is retried on the next pass.
func (s *SweepService) RunOnce(ctx context.Context) SweepResult {
	now := s.now()
	result := SweepResult{}

	stale, err := s.content.ListStale(ctx, models.SweepFilter{
		Status:        []models.ReviewStatus{models.StatusInProgress},
		UpdatedBefore: now.Add(-s.cfg.StaleAssignedAfter),
		Limit:         s.cfg.SweepBatchSize,
	})
	if err != nil {
		s.logger.Error("failed to list stale assignments", zap.Error(err))
	} else {
		for i := range stale {
			if _, err := s.reviews.Unassign(ctx, stale[i].ID, SystemActor); err != nil {
				s.logger.Warn("sweep unassign failed",
					zap.String("content_id", stale[i].ID),
					zap.Error(err))
				continue
			}
			result.Unassigned++
		}
	}

	reason := fmt.Sprintf("no moderator action within %d days", int(s.cfg.StaleUnclaimedAfter.Hours()/24))
	unclaimed, err := s.content.ListStale(ctx, models.SweepFilter{
		Status:        []models.ReviewStatus{models.StatusUnassigned, models.StatusReviewPending},
		UpdatedBefore: now.Add(-s.cfg.StaleUnclaimedAfter),
		Limit:         s.cfg.SweepBatchSize,
	})
	if err != nil {
		s.logger.Error("failed to list stale unclaimed content", zap.Error(err))
	} else {
		for i := range unclaimed {
			if _, err := s.reviews.Discard(ctx, unclaimed[i].ID, SystemActor, reason); err != nil {
				s.logger.Warn("sweep discard failed",
					zap.String("content_id", unclaimed[i].ID),
					zap.Error(err))
				continue
			}
			result.Discarded++
		}
	}

	s.metrics.ObserveSweep("unassign", result.Unassigned)
	s.metrics.ObserveSweep("discard", result.Discarded)
	s.logger.Info("sweep pass complete",
		zap.Int("unassigned", result.Unassigned),
		zap.Int("discarded", result.Discarded))
	return result
}
