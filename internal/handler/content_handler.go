package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quillhub/moderation-api/internal/dto"
	"github.com/quillhub/moderation-api/internal/middleware"
	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/internal/service"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
	"github.com/quillhub/moderation-api/pkg/response"
)

type contentService interface {
	SubmitArticle(ctx context.Context, req dto.SubmitArticleRequest, authorID string) (*models.ContentItem, error)
	SubmitPodcast(ctx context.Context, req dto.SubmitPodcastRequest, authorID string) (*models.ContentItem, error)
	SubmitEditRequest(ctx context.Context, req dto.SubmitEditRequestRequest, authorID string) (*models.ContentItem, error)
	Get(ctx context.Context, id string, actor service.Actor) (*models.ContentItem, error)
	List(ctx context.Context, query dto.ContentQuery, actor service.Actor) ([]models.ContentItem, error)
	ListUnassigned(ctx context.Context, kind models.ContentKind, limit, offset int) ([]models.ContentItem, bool, error)
	ListForModerator(ctx context.Context, reviewerID string, status []models.ReviewStatus, limit, offset int) ([]models.ContentItem, error)
}

// ContentHandler exposes intake and listing endpoints for the moderation queue.
type ContentHandler struct {
	service contentService
}

// NewContentHandler constructs the handler.
func NewContentHandler(service contentService) *ContentHandler {
	return &ContentHandler{service: service}
}

// SubmitArticle godoc
// @Summary Submit an article for review
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body dto.SubmitArticleRequest true "Article payload"
// @Success 201 {object} response.Envelope
// @Router /articles [post]
func (h *ContentHandler) SubmitArticle(c *gin.Context) {
	var req dto.SubmitArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid article payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.SubmitArticle(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// SubmitPodcast godoc
// @Summary Submit a podcast for review
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body dto.SubmitPodcastRequest true "Podcast payload"
// @Success 201 {object} response.Envelope
// @Router /podcasts [post]
func (h *ContentHandler) SubmitPodcast(c *gin.Context) {
	var req dto.SubmitPodcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid podcast payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.SubmitPodcast(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// SubmitEditRequest godoc
// @Summary Propose an edit to a published article
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body dto.SubmitEditRequestRequest true "Edit request payload"
// @Success 201 {object} response.Envelope
// @Router /edit-requests [post]
func (h *ContentHandler) SubmitEditRequest(c *gin.Context) {
	var req dto.SubmitEditRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.SubmitEditRequest(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Get godoc
// @Summary Get one content item
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /content/{id} [get]
func (h *ContentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.Get(c.Request.Context(), c.Param("id"), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// List godoc
// @Summary List content items
// @Tags Content
// @Produce json
// @Param kind query string false "ARTICLE, PODCAST or EDIT_REQUEST"
// @Param status query string false "Comma separated review statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /content [get]
func (h *ContentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.ContentQuery{
		Kind:   models.ContentKind(strings.ToUpper(c.Query("kind"))),
		Status: parseStatuses(c.Query("status")),
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	items, err := h.service.List(c.Request.Context(), query, actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Queue godoc
// @Summary List the unassigned queue
// @Tags Content
// @Produce json
// @Param kind query string false "ARTICLE, PODCAST or EDIT_REQUEST"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /content/queue [get]
func (h *ContentHandler) Queue(c *gin.Context) {
	kind := models.ContentKind(strings.ToUpper(c.Query("kind")))
	items, cached, err := h.service.ListUnassigned(c.Request.Context(), kind, intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// Inbox godoc
// @Summary List the moderator's claimed items
// @Tags Content
// @Produce json
// @Param status query string false "Comma separated review statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /content/inbox [get]
func (h *ContentHandler) Inbox(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.ListForModerator(c.Request.Context(), claims.UserID,
		parseStatuses(c.Query("status")), intQuery(c, "limit"), intQuery(c, "offset"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

func parseStatuses(raw string) []models.ReviewStatus {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]models.ReviewStatus, 0, len(parts))
	for _, part := range parts {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		statuses = append(statuses, models.ReviewStatus(part))
	}
	return statuses
}

func intQuery(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
