package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quillhub/moderation-api/internal/dto"
	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/internal/repository"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

type contentStore interface {
	Create(ctx context.Context, item *models.ContentItem) error
	GetByID(ctx context.Context, id string) (*models.ContentItem, error)
	List(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error)
	ListStale(ctx context.Context, filter models.SweepFilter) ([]models.ContentItem, error)
	Claim(ctx context.Context, id, reviewerID string, now time.Time) error
	UpdateTransition(ctx context.Context, params repository.TransitionParams) error
	UpdateRevision(ctx context.Context, id string, title, body *string, assets []string, now time.Time) error
	PublishEdit(ctx context.Context, params repository.TransitionParams, articleID, title, body string) error
	CountOpenEditRequests(ctx context.Context, authorID string) (int, error)
}

type commentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByContent(ctx context.Context, contentID string) ([]models.Comment, error)
}

type reviewUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type effectSink interface {
	Dispatch(contentID string, effects []Effect)
}

// SystemActor drives sweep-triggered transitions.
var SystemActor = Actor{ID: "system", System: true}

// ReviewService orchestrates the moderation pipeline: it loads a snapshot,
// asks the state machine for a decision, commits the transition with a
// guarded update, and hands the owed side effects to the dispatcher. Store
// failures abort; side-effect failures never do.
type ReviewService struct {
	content  contentStore
	comments commentStore
	users    reviewUserStore
	effects  effectSink
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
}

// NewReviewService constructs the service.
func NewReviewService(content contentStore, comments commentStore, users reviewUserStore, effects effectSink, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		content:  content,
		comments: comments,
		users:    users,
		effects:  effects,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithCache lets committed transitions drop stale queue pages.
func (s *ReviewService) WithCache(cache *CacheService) *ReviewService {
	s.cache = cache
	return s
}

// WithClock overrides the service clock. Used by tests and the sweeper.
func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	if now != nil {
		s.now = now
	}
	return s
}

// Claim gives a moderator exclusive ownership of an unassigned item. The
// store-level conditional update is the arbiter: under concurrent claims
// exactly one caller wins, the rest get a conflict.
func (s *ReviewService) Claim(ctx context.Context, itemID string, actor Actor) (*models.ContentItem, error) {
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.authorBlocked(ctx, item.AuthorID)
	if err != nil {
		return nil, err
	}
	transition, err := Decide(item, ActionClaim, actor, Payload{AuthorBlocked: blocked})
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.content.Claim(ctx, item.ID, actor.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "content was claimed by another moderator")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim content")
	}
	s.apply(item, transition, now)
	s.finish(ctx, item, transition, actor, models.AuditActionClaim, transition.FromStatus[0])
	return item, nil
}

// SubmitFeedback records moderator feedback and hands the item back to the
// author. The comment is persisted before the status flip so a crash in
// between leaves the comment in place and the transition retryable.
func (s *ReviewService) SubmitFeedback(ctx context.Context, itemID string, actor Actor, text string) (*models.ContentItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "feedback text is required")
	}
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	transition, err := Decide(item, ActionSubmitFeedback, actor, Payload{FeedbackText: text})
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{
		AuthorID:        actor.ID,
		TargetContentID: item.ID,
		Content:         text,
		IsReview:        true,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save feedback comment")
	}
	prior := item.Status
	if err := s.commit(ctx, item, transition); err != nil {
		return nil, err
	}
	s.finish(ctx, item, transition, actor, models.AuditActionFeedback, prior)
	return item, nil
}

// ReviseAsAuthor applies the author's updated content. A claimed item moves
// to REVIEW_PENDING for the same reviewer; an unclaimed one stays in the
// queue with a fresh sweep clock.
func (s *ReviewService) ReviseAsAuthor(ctx context.Context, itemID string, actor Actor, req dto.ReviseRequest) (*models.ContentItem, error) {
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	transition, err := Decide(item, ActionAuthorRevise, actor, Payload{})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Note) != "" {
		note := &models.Comment{
			AuthorID:        actor.ID,
			TargetContentID: item.ID,
			Content:         req.Note,
			IsNote:          true,
		}
		if err := s.comments.Create(ctx, note); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save revision note")
		}
	}
	now := s.now()
	var title, body *string
	if strings.TrimSpace(req.Title) != "" {
		title = &req.Title
	}
	if strings.TrimSpace(req.Body) != "" {
		body = &req.Body
	}
	if title != nil || body != nil || req.Assets != nil {
		if err := s.content.UpdateRevision(ctx, item.ID, title, body, req.Assets, now); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "content no longer exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store revision")
		}
		if title != nil {
			item.Title = *title
		}
		if body != nil {
			item.Body = body
		}
	}
	prior := item.Status
	if err := s.commit(ctx, item, transition); err != nil {
		return nil, err
	}
	s.finish(ctx, item, transition, actor, models.AuditActionRevise, prior)
	return item, nil
}

// Publish makes a reviewed item public. Publishing an edit request first
// merges its content into the target article, then closes the request.
func (s *ReviewService) Publish(ctx context.Context, itemID string, actor Actor) (*models.ContentItem, error) {
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	transition, err := Decide(item, ActionPublish, actor, Payload{})
	if err != nil {
		return nil, err
	}
	if item.Kind == models.KindEditRequest {
		if item.ArticleID == nil || item.Body == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "edit request has no target article or body")
		}
		prior := item.Status
		now := s.now()
		if err := s.content.PublishEdit(ctx, s.transitionParams(item, transition, now), *item.ArticleID, item.Title, *item.Body); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "edit request or target article changed, retry")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish edit request")
		}
		s.apply(item, transition, now)
		s.finish(ctx, item, transition, actor, models.AuditActionPublish, prior)
		return item, nil
	}
	prior := item.Status
	if err := s.commit(ctx, item, transition); err != nil {
		return nil, err
	}
	s.finish(ctx, item, transition, actor, models.AuditActionPublish, prior)
	return item, nil
}

// Discard removes an item from the pipeline. Asset and mirror cleanup runs
// as side effects after the transition commits.
func (s *ReviewService) Discard(ctx context.Context, itemID string, actor Actor, reason string) (*models.ContentItem, error) {
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	transition, err := Decide(item, ActionDiscard, actor, Payload{DiscardReason: reason})
	if err != nil {
		return nil, err
	}
	prior := item.Status
	if err := s.commit(ctx, item, transition); err != nil {
		return nil, err
	}
	action := models.AuditActionDiscard
	if actor.System {
		action = models.AuditActionSweep
	}
	s.finish(ctx, item, transition, actor, action, prior)
	return item, nil
}

// Unassign releases a claimed item back to the queue.
func (s *ReviewService) Unassign(ctx context.Context, itemID string, actor Actor) (*models.ContentItem, error) {
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	transition, err := Decide(item, ActionUnassign, actor, Payload{})
	if err != nil {
		return nil, err
	}
	prior := item.Status
	if err := s.commit(ctx, item, transition); err != nil {
		return nil, err
	}
	action := models.AuditActionUnassign
	if actor.System {
		action = models.AuditActionSweep
	}
	s.finish(ctx, item, transition, actor, action, prior)
	return item, nil
}

// Comments returns the feedback thread for an item.
func (s *ReviewService) Comments(ctx context.Context, itemID string) ([]models.Comment, error) {
	if _, err := s.load(ctx, itemID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByContent(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

func (s *ReviewService) load(ctx context.Context, itemID string) (*models.ContentItem, error) {
	item, err := s.content.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return item, nil
}

func (s *ReviewService) authorBlocked(ctx context.Context, authorID string) (bool, error) {
	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "author account not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load author")
	}
	return author.Blocked || !author.Active, nil
}

// commit applies the decided transition with a from-status guard and mirrors
// it onto the in-memory snapshot.
func (s *ReviewService) commit(ctx context.Context, item *models.ContentItem, transition *Transition) error {
	now := s.now()
	if err := s.content.UpdateTransition(ctx, s.transitionParams(item, transition, now)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "content changed state, retry")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist transition")
	}
	s.apply(item, transition, now)
	return nil
}

func (s *ReviewService) transitionParams(item *models.ContentItem, transition *Transition, now time.Time) repository.TransitionParams {
	params := repository.TransitionParams{
		ID:            item.ID,
		FromStatus:    transition.FromStatus,
		ToStatus:      transition.ToStatus,
		ReviewerID:    transition.SetReviewer,
		ClearReviewer: transition.ClearReviewer,
		DiscardReason: transition.DiscardReason,
		Now:           now,
	}
	if transition.SetPublished {
		params.PublishedAt = &now
	}
	return params
}

func (s *ReviewService) apply(item *models.ContentItem, transition *Transition, now time.Time) {
	item.Status = transition.ToStatus
	item.LastUpdated = now
	if transition.SetReviewer != nil {
		item.ReviewerID = transition.SetReviewer
		item.AssignedAt = &now
	}
	if transition.ClearReviewer {
		item.ReviewerID = nil
		item.AssignedAt = nil
	}
	if transition.DiscardReason != nil {
		item.DiscardReason = transition.DiscardReason
	}
	if transition.SetPublished {
		item.PublishedAt = &now
	}
}

// finish records the audit row and dispatches side effects. Both are
// post-commit and best-effort.
func (s *ReviewService) finish(ctx context.Context, item *models.ContentItem, transition *Transition, actor Actor, action string, from models.ReviewStatus) {
	actorID := actor.ID
	oldStatus, _ := json.Marshal(map[string]string{"status": string(from)})
	newStatus, _ := json.Marshal(map[string]string{"status": string(transition.ToStatus)})
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   strings.ToLower(string(item.Kind)),
		ResourceID: &item.ID,
		OldValues:  oldStatus,
		NewValues:  newStatus,
		IPAddress:  "system",
		UserAgent:  "review-service",
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "queue:*")
	}
	if s.effects != nil {
		s.effects.Dispatch(item.ID, transition.Effects)
	}
}
