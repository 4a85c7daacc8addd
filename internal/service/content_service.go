package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/quillhub/moderation-api/internal/dto"
	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

// ContentService handles intake and read queries for the moderation queue.
type ContentService struct {
	content       contentStore
	users         reviewUserStore
	effects       effectSink
	cache         *CacheService
	logger        *zap.Logger
	editOpenLimit int
}

// NewContentService constructs the service. editOpenLimit bounds how many
// open edit requests one user may hold; 0 falls back to the default of 2.
func NewContentService(content contentStore, users reviewUserStore, effects effectSink, logger *zap.Logger, editOpenLimit int) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if editOpenLimit <= 0 {
		editOpenLimit = 2
	}
	return &ContentService{
		content:       content,
		users:         users,
		effects:       effects,
		logger:        logger,
		editOpenLimit: editOpenLimit,
	}
}

// WithCache enables queue listing caching. Entries expire on their TTL and
// are invalidated on new submissions; review transitions leave a stale
// window bounded by the TTL, which the queue view tolerates.
func (s *ContentService) WithCache(cache *CacheService) *ContentService {
	s.cache = cache
	return s
}

// SubmitArticle places a new article into the unassigned queue.
func (s *ContentService) SubmitArticle(ctx context.Context, req dto.SubmitArticleRequest, authorID string) (*models.ContentItem, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title and body are required")
	}
	item := &models.ContentItem{
		Kind:     models.KindArticle,
		Title:    req.Title,
		Body:     &req.Body,
		AuthorID: authorID,
		Status:   models.StatusUnassigned,
		Assets:   pq.StringArray(req.Assets),
	}
	return s.create(ctx, item)
}

// SubmitPodcast places a new podcast into the queue. Podcasts share the
// same intake but skip the author revision loop during review.
func (s *ContentService) SubmitPodcast(ctx context.Context, req dto.SubmitPodcastRequest, authorID string) (*models.ContentItem, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.AudioURL) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title and audio_url are required")
	}
	item := &models.ContentItem{
		Kind:     models.KindPodcast,
		Title:    req.Title,
		AudioURL: &req.AudioURL,
		AuthorID: authorID,
		Status:   models.StatusUnassigned,
		Assets:   pq.StringArray(req.Assets),
	}
	if strings.TrimSpace(req.CoverURL) != "" {
		item.CoverURL = &req.CoverURL
	}
	return s.create(ctx, item)
}

// SubmitEditRequest proposes changes to an existing article. The open-request
// quota is a best-effort count taken just before the insert; concurrent
// submissions can briefly exceed it.
func (s *ContentService) SubmitEditRequest(ctx context.Context, req dto.SubmitEditRequestRequest, authorID string) (*models.ContentItem, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" || strings.TrimSpace(req.EditReason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title, body and edit_reason are required")
	}
	target, err := s.content.GetByID(ctx, req.ArticleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target article not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target article")
	}
	if target.Kind != models.KindArticle || target.IsRemoved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target is not an editable article")
	}
	open, err := s.content.CountOpenEditRequests(ctx, authorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open edit requests")
	}
	if open >= s.editOpenLimit {
		return nil, appErrors.ErrQuotaExceeded
	}
	item := &models.ContentItem{
		Kind:       models.KindEditRequest,
		Title:      req.Title,
		Body:       &req.Body,
		ArticleID:  &req.ArticleID,
		EditReason: &req.EditReason,
		AuthorID:   authorID,
		Status:     models.StatusUnassigned,
		Assets:     pq.StringArray(req.Assets),
	}
	return s.create(ctx, item)
}

// Get returns a single item. Removed items are hidden from everyone but
// their author and moderators.
func (s *ContentService) Get(ctx context.Context, id string, actor Actor) (*models.ContentItem, error) {
	item, err := s.content.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	if item.IsRemoved && !actor.Role.IsModerator() && actor.ID != item.AuthorID {
		return nil, appErrors.ErrNotFound
	}
	return item, nil
}

// List returns moderation listings. Regular users only see their own items.
func (s *ContentService) List(ctx context.Context, query dto.ContentQuery, actor Actor) ([]models.ContentItem, error) {
	filter := models.ContentFilter{
		Kind:   query.Kind,
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if !actor.Role.IsModerator() {
		filter.AuthorID = actor.ID
	}
	items, err := s.content.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content")
	}
	return items, nil
}

// ListUnassigned returns the claimable queue for moderators. The second
// return value reports whether the page came from cache.
func (s *ContentService) ListUnassigned(ctx context.Context, kind models.ContentKind, limit, offset int) ([]models.ContentItem, bool, error) {
	key := fmt.Sprintf("queue:%s:%d:%d", kind, limit, offset)
	if s.cache.Enabled() {
		var cached []models.ContentItem
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}
	items, err := s.content.List(ctx, models.ContentFilter{
		Kind:   kind,
		Status: []models.ReviewStatus{models.StatusUnassigned},
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unassigned content")
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, items, 0)
	}
	return items, false, nil
}

// ListForModerator returns the reviewer's current inbox.
func (s *ContentService) ListForModerator(ctx context.Context, reviewerID string, status []models.ReviewStatus, limit, offset int) ([]models.ContentItem, error) {
	if len(status) == 0 {
		status = []models.ReviewStatus{models.StatusInProgress, models.StatusAwaitingUser, models.StatusReviewPending}
	}
	items, err := s.content.List(ctx, models.ContentFilter{
		ReviewerID: reviewerID,
		Status:     status,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviewer inbox")
	}
	return items, nil
}

func (s *ContentService) create(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	blocked, err := s.submitterBlocked(ctx, item.AuthorID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, appErrors.ErrAuthorBlocked
	}
	if err := s.content.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "queue:*")
	}
	authorID := item.AuthorID
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &authorID,
		Action:     models.AuditActionSubmit,
		Resource:   strings.ToLower(string(item.Kind)),
		ResourceID: &item.ID,
		NewValues:  []byte(`{"status":"UNASSIGNED"}`),
		IPAddress:  "system",
		UserAgent:  "content-service",
	}); err != nil {
		s.logger.Warn("failed to persist submit audit log", zap.Error(err))
	}
	return item, nil
}

func (s *ContentService) submitterBlocked(ctx context.Context, authorID string) (bool, error) {
	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "author account not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load author")
	}
	return author.Blocked || !author.Active, nil
}
