package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/moderation-api/internal/dto"
	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

type contentIntakeStub struct {
	*stubContentStore
	created   []*models.ContentItem
	openCount int
	filters   []models.ContentFilter
}

func (s *contentIntakeStub) Create(ctx context.Context, item *models.ContentItem) error {
	item.ID = "new-1"
	s.created = append(s.created, item)
	return nil
}

func (s *contentIntakeStub) CountOpenEditRequests(ctx context.Context, authorID string) (int, error) {
	return s.openCount, nil
}

func (s *contentIntakeStub) List(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error) {
	s.filters = append(s.filters, filter)
	return nil, nil
}

func newContentFixture(target *models.ContentItem) (*ContentService, *contentIntakeStub, *stubUserStore) {
	content := &contentIntakeStub{stubContentStore: &stubContentStore{item: target}}
	users := &stubUserStore{users: map[string]*models.User{
		"author-1": {ID: "author-1", Email: "author@example.com", Active: true},
	}}
	svc := NewContentService(content, users, &recordingSink{}, nil, 0)
	return svc, content, users
}

func TestContentServiceSubmitArticle(t *testing.T) {
	svc, content, users := newContentFixture(nil)

	item, err := svc.SubmitArticle(context.Background(), dto.SubmitArticleRequest{
		Title: "On moderation",
		Body:  "A body",
	}, "author-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnassigned, item.Status)
	assert.Equal(t, models.KindArticle, item.Kind)
	require.Len(t, content.created, 1)

	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionSubmit, users.auditLogs[0].Action)
	assert.Equal(t, "article", users.auditLogs[0].Resource)
}

func TestContentServiceSubmitArticleValidation(t *testing.T) {
	svc, _, _ := newContentFixture(nil)

	_, err := svc.SubmitArticle(context.Background(), dto.SubmitArticleRequest{Title: "no body"}, "author-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContentServiceSubmitBlockedAuthor(t *testing.T) {
	svc, content, users := newContentFixture(nil)
	users.users["author-1"].Blocked = true

	_, err := svc.SubmitPodcast(context.Background(), dto.SubmitPodcastRequest{
		Title:    "Episode 1",
		AudioURL: "audio/ep1.mp3",
	}, "author-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAuthorBlocked.Code, appErrors.FromError(err).Code)
	assert.Empty(t, content.created)
}

func TestContentServiceEditRequestQuota(t *testing.T) {
	target := reviewItem(models.KindArticle, models.StatusPublished, "")
	req := dto.SubmitEditRequestRequest{
		ArticleID:  "content-1",
		Title:      "Fix the date",
		Body:       "Corrected body",
		EditReason: "wrong year in the intro",
	}

	svc, content, _ := newContentFixture(target)
	content.openCount = 1
	item, err := svc.SubmitEditRequest(context.Background(), req, "author-1")
	require.NoError(t, err)
	assert.Equal(t, models.KindEditRequest, item.Kind)

	svc, content, _ = newContentFixture(target)
	content.openCount = 2
	_, err = svc.SubmitEditRequest(context.Background(), req, "author-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, appErrors.FromError(err).Code)
}

func TestContentServiceEditRequestTargetMustBeArticle(t *testing.T) {
	svc, _, _ := newContentFixture(reviewItem(models.KindPodcast, models.StatusPublished, ""))

	_, err := svc.SubmitEditRequest(context.Background(), dto.SubmitEditRequestRequest{
		ArticleID:  "content-1",
		Title:      "Fix",
		Body:       "Body",
		EditReason: "typo",
	}, "author-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContentServiceGetHidesRemoved(t *testing.T) {
	target := reviewItem(models.KindArticle, models.StatusPublished, "")
	target.IsRemoved = true
	svc, _, _ := newContentFixture(target)

	_, err := svc.Get(context.Background(), "content-1", Actor{ID: "stranger", Role: models.RoleUser})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	item, err := svc.Get(context.Background(), "content-1", author)
	require.NoError(t, err)
	assert.True(t, item.IsRemoved)

	_, err = svc.Get(context.Background(), "content-1", moderator)
	require.NoError(t, err)
}

func TestContentServiceListScopesRegularUsers(t *testing.T) {
	svc, content, _ := newContentFixture(nil)

	_, err := svc.List(context.Background(), dto.ContentQuery{Limit: 10}, author)
	require.NoError(t, err)
	require.Len(t, content.filters, 1)
	assert.Equal(t, "author-1", content.filters[0].AuthorID)

	_, err = svc.List(context.Background(), dto.ContentQuery{Limit: 10}, moderator)
	require.NoError(t, err)
	require.Len(t, content.filters, 2)
	assert.Empty(t, content.filters[1].AuthorID)
}

func TestContentServiceInboxDefaultStatuses(t *testing.T) {
	svc, content, _ := newContentFixture(nil)

	_, err := svc.ListForModerator(context.Background(), "mod-1", nil, 20, 0)
	require.NoError(t, err)
	require.Len(t, content.filters, 1)
	assert.Equal(t, "mod-1", content.filters[0].ReviewerID)
	assert.ElementsMatch(t, []models.ReviewStatus{
		models.StatusInProgress,
		models.StatusAwaitingUser,
		models.StatusReviewPending,
	}, content.filters[0].Status)
}
