package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/distrodissect/dissector/cmd/dissector/service"
	"github.com/distrodissect/dissector/common/models"
	"github.com/distrodissect/dissector/common/repository"
)

// ComparisonHandler handles comparison lifecycle requests
type ComparisonHandler struct {
	comparisons *service.ComparisonService
}

// NewComparisonHandler creates a new comparison handler
func NewComparisonHandler(comparisons *service.ComparisonService) *ComparisonHandler {
	return &ComparisonHandler{comparisons: comparisons}
}

type comparisonResponse struct {
	ID          int64                `json:"id"`
	FromBranch  int64                `json:"from_branch_id"`
	ToBranch    int64                `json:"to_branch_id"`
	Status      models.Status        `json:"status"`
	StatusLabel string               `json:"status_label"`
	Differences []*models.Difference `json:"differences,omitempty"`
}

func newComparisonResponse(cmp *models.Comparison, diffs []*models.Difference) *comparisonResponse {
	return &comparisonResponse{
		ID:          cmp.ID,
		FromBranch:  cmp.FromBranchID,
		ToBranch:    cmp.ToBranchID,
		Status:      cmp.Status,
		StatusLabel: cmp.Status.Label(),
		Differences: diffs,
	}
}

// Request starts (or re-joins) a comparison between two branches
// POST /api/v1/comparisons/:from/:to
func (h *ComparisonHandler) Request(c echo.Context) error {
	from := c.Param("from")
	to := c.Param("to")
	if from == to {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "cannot compare a branch against itself",
		})
	}

	cmp, err := h.comparisons.Request(c.Request().Context(), from, to)
	if err != nil {
		return comparisonError(c, err)
	}

	return c.JSON(http.StatusAccepted, newComparisonResponse(cmp, nil))
}

// Get reports comparison status, including the difference list once the
// run has succeeded. The status is mirrored in the X-Status header so
// pollers can skip the body.
// GET /api/v1/comparisons/:from/:to
func (h *ComparisonHandler) Get(c echo.Context) error {
	cmp, diffs, err := h.comparisons.Get(c.Request().Context(), c.Param("from"), c.Param("to"))
	if err != nil {
		return comparisonError(c, err)
	}

	c.Response().Header().Set("X-Status", string(cmp.Status))
	return c.JSON(http.StatusOK, newComparisonResponse(cmp, diffs))
}

// Regenerate discards a comparison so the next request recomputes it
// DELETE /api/v1/comparisons/:from/:to
func (h *ComparisonHandler) Regenerate(c echo.Context) error {
	err := h.comparisons.Regenerate(c.Request().Context(), c.Param("from"), c.Param("to"))
	if err != nil {
		return comparisonError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func comparisonError(c echo.Context, err error) error {
	switch {
	case repository.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDispatch):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
