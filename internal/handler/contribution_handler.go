package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
	"github.com/quillhub/moderation-api/pkg/export"
	"github.com/quillhub/moderation-api/pkg/response"
)

type contributionService interface {
	Summary(ctx context.Context, actorID string, from, to time.Time) (*models.ContributionSummary, error)
}

// ContributionHandler serves the contribution graph roll-ups.
type ContributionHandler struct {
	service contributionService
}

// NewContributionHandler constructs the handler.
func NewContributionHandler(service contributionService) *ContributionHandler {
	return &ContributionHandler{service: service}
}

// Me godoc
// @Summary Contribution summary for the current user
// @Tags Contributions
// @Produce json
// @Param from query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /contributions/me [get]
func (h *ContributionHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	from, ok := parseDate(c.Query("from"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
		return
	}
	to, ok := parseDate(c.Query("to"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), claims.UserID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Contribution counters as CSV
// @Tags Contributions
// @Produce text/csv
// @Param from query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param to query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Success 200 {string} string "CSV payload"
// @Router /contributions/me/export [get]
func (h *ContributionHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	from, ok := parseDate(c.Query("from"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
		return
	}
	to, ok := parseDate(c.Query("to"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), claims.UserID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	dataset := export.Dataset{
		Headers: []string{"day", "kind", "count"},
		Rows:    make([]map[string]string, 0, len(summary.Rows)),
	}
	for _, row := range summary.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"day":   row.Day.Format("2006-01-02"),
			"kind":  string(row.Kind),
			"count": strconv.Itoa(row.Count),
		})
	}
	payload, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="contributions.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
