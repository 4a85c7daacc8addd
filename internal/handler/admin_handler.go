package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillhub/moderation-api/internal/service"
	"github.com/quillhub/moderation-api/pkg/response"
)

type sweepRunner interface {
	RunOnce(ctx context.Context) service.SweepResult
}

// AdminHandler exposes operator-only maintenance actions.
type AdminHandler struct {
	sweeper sweepRunner
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(sweeper sweepRunner) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// TriggerSweep godoc
// @Summary Run a maintenance sweep now
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/sweep [post]
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	result := h.sweeper.RunOnce(c.Request.Context())
	response.JSON(c, http.StatusOK, result, nil)
}
