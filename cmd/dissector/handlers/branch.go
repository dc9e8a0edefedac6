package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/distrodissect/dissector/common/repository"
)

// BranchHandler exposes the branches comparisons can be requested between
type BranchHandler struct {
	branches *repository.BranchRepository
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(branches *repository.BranchRepository) *BranchHandler {
	return &BranchHandler{branches: branches}
}

// List returns the non-hidden comparison branches
// GET /api/v1/branches
func (h *BranchHandler) List(c echo.Context) error {
	branches, err := h.branches.ListComparison(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{"branches": branches})
}
