package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/moderation-api/internal/dto"
	"github.com/quillhub/moderation-api/internal/middleware"
	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/internal/service"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

type reviewServiceMock struct {
	item      *models.ContentItem
	err       error
	lastID    string
	lastActor service.Actor
	lastText  string
}

func (m *reviewServiceMock) Claim(ctx context.Context, itemID string, actor service.Actor) (*models.ContentItem, error) {
	m.lastID, m.lastActor = itemID, actor
	return m.item, m.err
}

func (m *reviewServiceMock) SubmitFeedback(ctx context.Context, itemID string, actor service.Actor, text string) (*models.ContentItem, error) {
	m.lastID, m.lastActor, m.lastText = itemID, actor, text
	return m.item, m.err
}

func (m *reviewServiceMock) ReviseAsAuthor(ctx context.Context, itemID string, actor service.Actor, req dto.ReviseRequest) (*models.ContentItem, error) {
	m.lastID, m.lastActor = itemID, actor
	return m.item, m.err
}

func (m *reviewServiceMock) Publish(ctx context.Context, itemID string, actor service.Actor) (*models.ContentItem, error) {
	m.lastID, m.lastActor = itemID, actor
	return m.item, m.err
}

func (m *reviewServiceMock) Discard(ctx context.Context, itemID string, actor service.Actor, reason string) (*models.ContentItem, error) {
	m.lastID, m.lastActor, m.lastText = itemID, actor, reason
	return m.item, m.err
}

func (m *reviewServiceMock) Unassign(ctx context.Context, itemID string, actor service.Actor) (*models.ContentItem, error) {
	m.lastID, m.lastActor = itemID, actor
	return m.item, m.err
}

func (m *reviewServiceMock) Comments(ctx context.Context, itemID string) ([]models.Comment, error) {
	m.lastID = itemID
	return nil, m.err
}

type observerMock struct {
	actions []string
	kinds   []string
}

func (m *observerMock) ObserveTransition(action, kind string) {
	m.actions = append(m.actions, action)
	m.kinds = append(m.kinds, kind)
}

func reviewTestContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "content-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestReviewHandlerClaim(t *testing.T) {
	mockSvc := &reviewServiceMock{item: &models.ContentItem{ID: "content-1", Kind: models.KindArticle, Status: models.StatusInProgress}}
	observer := &observerMock{}
	handler := NewReviewHandler(mockSvc, observer)

	c, w := reviewTestContext(t, http.MethodPost, "/content/content-1/claim", nil,
		&models.JWTClaims{UserID: "mod-1", Role: models.RoleModerator})

	handler.Claim(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "content-1", mockSvc.lastID)
	assert.Equal(t, "mod-1", mockSvc.lastActor.ID)
	assert.Equal(t, models.RoleModerator, mockSvc.lastActor.Role)
	assert.Equal(t, []string{"claim"}, observer.actions)
	assert.Equal(t, []string{"ARTICLE"}, observer.kinds)
}

func TestReviewHandlerClaimUnauthenticated(t *testing.T) {
	handler := NewReviewHandler(&reviewServiceMock{}, nil)

	c, w := reviewTestContext(t, http.MethodPost, "/content/content-1/claim", nil, nil)

	handler.Claim(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReviewHandlerFeedbackMissingText(t *testing.T) {
	observer := &observerMock{}
	handler := NewReviewHandler(&reviewServiceMock{}, observer)

	c, w := reviewTestContext(t, http.MethodPost, "/content/content-1/feedback", []byte(`{}`),
		&models.JWTClaims{UserID: "mod-1", Role: models.RoleModerator})

	handler.Feedback(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, observer.actions)
}

func TestReviewHandlerDiscardConflict(t *testing.T) {
	mockSvc := &reviewServiceMock{err: appErrors.ErrConflict}
	observer := &observerMock{}
	handler := NewReviewHandler(mockSvc, observer)

	c, w := reviewTestContext(t, http.MethodPost, "/content/content-1/discard", []byte(`{"reason":"duplicate"}`),
		&models.JWTClaims{UserID: "mod-1", Role: models.RoleModerator})

	handler.Discard(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate", mockSvc.lastText)
	assert.Empty(t, observer.actions)
}

func TestReviewHandlerPublishNoMetrics(t *testing.T) {
	mockSvc := &reviewServiceMock{item: &models.ContentItem{ID: "content-1", Kind: models.KindPodcast, Status: models.StatusPublished}}
	handler := NewReviewHandler(mockSvc, nil)

	c, w := reviewTestContext(t, http.MethodPost, "/content/content-1/publish", nil,
		&models.JWTClaims{UserID: "mod-1", Role: models.RoleModerator})

	handler.Publish(c)
	require.Equal(t, http.StatusOK, w.Code)
}
