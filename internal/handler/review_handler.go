package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillhub/moderation-api/internal/dto"
	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/internal/service"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
	"github.com/quillhub/moderation-api/pkg/response"
)

type reviewService interface {
	Claim(ctx context.Context, itemID string, actor service.Actor) (*models.ContentItem, error)
	SubmitFeedback(ctx context.Context, itemID string, actor service.Actor, text string) (*models.ContentItem, error)
	ReviseAsAuthor(ctx context.Context, itemID string, actor service.Actor, req dto.ReviseRequest) (*models.ContentItem, error)
	Publish(ctx context.Context, itemID string, actor service.Actor) (*models.ContentItem, error)
	Discard(ctx context.Context, itemID string, actor service.Actor, reason string) (*models.ContentItem, error)
	Unassign(ctx context.Context, itemID string, actor service.Actor) (*models.ContentItem, error)
	Comments(ctx context.Context, itemID string) ([]models.Comment, error)
}

type transitionObserver interface {
	ObserveTransition(action, kind string)
}

// ReviewHandler exposes the moderation actions on a content item.
type ReviewHandler struct {
	service reviewService
	metrics transitionObserver
}

// NewReviewHandler constructs the handler. metrics may be nil.
func NewReviewHandler(service reviewService, metrics transitionObserver) *ReviewHandler {
	return &ReviewHandler{service: service, metrics: metrics}
}

// Claim godoc
// @Summary Claim an unassigned item for review
// @Tags Review
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/claim [post]
func (h *ReviewHandler) Claim(c *gin.Context) {
	h.run(c, "claim", func(ctx context.Context, id string, actor service.Actor) (*models.ContentItem, error) {
		return h.service.Claim(ctx, id, actor)
	})
}

// Feedback godoc
// @Summary Send feedback to the author
// @Tags Review
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.FeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/feedback [post]
func (h *ReviewHandler) Feedback(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "feedback text is required"))
		return
	}
	h.run(c, "feedback", func(ctx context.Context, id string, actor service.Actor) (*models.ContentItem, error) {
		return h.service.SubmitFeedback(ctx, id, actor, req.Text)
	})
}

// Revise godoc
// @Summary Submit a revision as the author
// @Tags Review
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.ReviseRequest true "Revision payload"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/revise [post]
func (h *ReviewHandler) Revise(c *gin.Context) {
	var req dto.ReviseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid revision payload"))
		return
	}
	h.run(c, "revise", func(ctx context.Context, id string, actor service.Actor) (*models.ContentItem, error) {
		return h.service.ReviseAsAuthor(ctx, id, actor, req)
	})
}

// Publish godoc
// @Summary Approve and publish the item
// @Tags Review
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/publish [post]
func (h *ReviewHandler) Publish(c *gin.Context) {
	h.run(c, "publish", func(ctx context.Context, id string, actor service.Actor) (*models.ContentItem, error) {
		return h.service.Publish(ctx, id, actor)
	})
}

// Discard godoc
// @Summary Discard the item with a reason
// @Tags Review
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body dto.DiscardRequest true "Discard payload"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/discard [post]
func (h *ReviewHandler) Discard(c *gin.Context) {
	var req dto.DiscardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "discard reason is required"))
		return
	}
	h.run(c, "discard", func(ctx context.Context, id string, actor service.Actor) (*models.ContentItem, error) {
		return h.service.Discard(ctx, id, actor, req.Reason)
	})
}

// Unassign godoc
// @Summary Release a claimed item back to the queue
// @Tags Review
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/unassign [post]
func (h *ReviewHandler) Unassign(c *gin.Context) {
	h.run(c, "unassign", func(ctx context.Context, id string, actor service.Actor) (*models.ContentItem, error) {
		return h.service.Unassign(ctx, id, actor)
	})
}

// Comments godoc
// @Summary List the review thread for an item
// @Tags Review
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /content/{id}/comments [get]
func (h *ReviewHandler) Comments(c *gin.Context) {
	comments, err := h.service.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

func (h *ReviewHandler) run(c *gin.Context, action string, fn func(ctx context.Context, id string, actor service.Actor) (*models.ContentItem, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := fn(c.Request.Context(), c.Param("id"), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveTransition(action, string(item.Kind))
	}
	response.JSON(c, http.StatusOK, item, nil)
}
