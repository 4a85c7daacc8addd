package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/pkg/config"
	"github.com/quillhub/moderation-api/pkg/jobs"
)

// Notifier delivers a best-effort push notification.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string, metadata map[string]string) error
}

// Mailer sends a transactional email from a named template.
type Mailer interface {
	Send(ctx context.Context, toEmail, template string, vars map[string]string) error
}

// AssetStore removes externally stored objects referenced by content.
type AssetStore interface {
	DeleteObject(key string) error
}

// MirrorStore removes the mirrored record in the external CMS.
type MirrorStore interface {
	DeleteRecord(ctx context.Context, recordID string) error
}

type contributionIncrementer interface {
	Increment(ctx context.Context, actorID string, kind models.ContributionKind, when time.Time) error
}

type emailResolver interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EffectDispatcher executes the side effects a committed transition owes.
// Effects run on a background worker queue; a failed effect is retried a few
// times and then logged and dropped. Nothing here ever touches the already
// committed status.
type EffectDispatcher struct {
	queue         *jobs.Queue
	notifier      Notifier
	mailer        Mailer
	assets        AssetStore
	mirror        MirrorStore
	contributions contributionIncrementer
	users         emailResolver
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

type effectJob struct {
	ContentID string
	Effect    Effect
}

// NewEffectDispatcher wires the dispatcher and its worker queue.
func NewEffectDispatcher(cfg config.EffectsConfig, notifier Notifier, mailer Mailer, assets AssetStore, mirror MirrorStore, contributions contributionIncrementer, users emailResolver, logger *zap.Logger) *EffectDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &EffectDispatcher{
		notifier:      notifier,
		mailer:        mailer,
		assets:        assets,
		mirror:        mirror,
		contributions: contributions,
		users:         users,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
	d.queue = jobs.NewQueue("effects", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// WithMetrics attaches effect execution counters.
func (d *EffectDispatcher) WithMetrics(metrics *MetricsService) *EffectDispatcher {
	d.metrics = metrics
	return d
}

// Start boots the worker pool.
func (d *EffectDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the worker pool.
func (d *EffectDispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch enqueues every effect of a committed transition. Enqueue failures
// are logged and swallowed: the transition already happened.
func (d *EffectDispatcher) Dispatch(contentID string, effects []Effect) {
	for _, effect := range effects {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    string(effect.Type),
			Payload: effectJob{ContentID: contentID, Effect: effect},
		}
		if err := d.queue.Enqueue(job); err != nil {
			d.logger.Warn("failed to enqueue side effect",
				zap.String("content_id", contentID),
				zap.String("effect", string(effect.Type)),
				zap.Error(err))
		}
	}
}

func (d *EffectDispatcher) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(effectJob)
	if !ok {
		d.logger.Error("unexpected effect payload", zap.String("job_id", job.ID))
		return nil
	}
	effect := payload.Effect
	err := d.run(ctx, payload.ContentID, effect)
	d.metrics.ObserveEffect(string(effect.Type), err == nil)
	return err
}

func (d *EffectDispatcher) run(ctx context.Context, contentID string, effect Effect) error {
	switch effect.Type {
	case EffectNotify:
		if d.notifier == nil {
			return nil
		}
		return d.notifier.Notify(ctx, effect.UserID, effect.Title, effect.Body, effect.Metadata)
	case EffectEmail:
		return d.sendEmail(ctx, contentID, effect)
	case EffectAssets:
		return d.deleteAssets(effect.AssetKeys)
	case EffectMirror:
		if d.mirror == nil {
			return nil
		}
		return d.mirror.DeleteRecord(ctx, effect.MirrorID)
	case EffectContribute:
		if d.contributions == nil || effect.UserID == "" {
			return nil
		}
		return d.contributions.Increment(ctx, effect.UserID, effect.Kind, d.now())
	default:
		d.logger.Warn("unknown effect type", zap.String("type", string(effect.Type)))
		return nil
	}
}

func (d *EffectDispatcher) sendEmail(ctx context.Context, contentID string, effect Effect) error {
	if d.mailer == nil {
		return nil
	}
	user, err := d.users.FindByID(ctx, effect.UserID)
	if err != nil {
		return fmt.Errorf("resolve email for %s: %w", effect.UserID, err)
	}
	vars := map[string]string{"full_name": user.FullName}
	for k, v := range effect.Metadata {
		vars[k] = v
	}
	if err := d.mailer.Send(ctx, user.Email, effect.Template, vars); err != nil {
		return fmt.Errorf("send %s email for %s: %w", effect.Template, contentID, err)
	}
	return nil
}

func (d *EffectDispatcher) deleteAssets(keys []string) error {
	if d.assets == nil {
		return nil
	}
	var failed int
	for _, key := range keys {
		if err := d.assets.DeleteObject(key); err != nil {
			failed++
			d.logger.Warn("asset cleanup failed", zap.String("key", key), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d assets", failed, len(keys))
	}
	return nil
}
