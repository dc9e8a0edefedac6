package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/distrodissect/dissector/cmd/dissector/service"
	"github.com/distrodissect/dissector/common/diffgen"
	"github.com/distrodissect/dissector/common/models"
	"github.com/distrodissect/dissector/common/repository"
)

// FileDiffHandler handles difference detail and file diff requests
type FileDiffHandler struct {
	fileDiffs *service.FileDiffService
}

// NewFileDiffHandler creates a new file diff handler
func NewFileDiffHandler(fileDiffs *service.FileDiffService) *FileDiffHandler {
	return &FileDiffHandler{fileDiffs: fileDiffs}
}

// GetDifference returns one difference with its source availability and
// any existing file diff record
// GET /api/v1/differences/:id
func (h *FileDiffHandler) GetDifference(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	detail, err := h.fileDiffs.Detail(c.Request().Context(), id)
	if err != nil {
		return fileDiffError(c, err)
	}

	return c.JSON(http.StatusOK, detail)
}

// RequestDiff starts (or re-joins) file diff generation for a difference
// POST /api/v1/differences/:id/diff
func (h *FileDiffHandler) RequestDiff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	fd, err := h.fileDiffs.Request(c.Request().Context(), id)
	if err != nil {
		return fileDiffError(c, err)
	}

	return c.JSON(http.StatusAccepted, fd)
}

// ReadDiff streams the generated diff artifact. While generation is
// pending or failed a short text marker is served instead; the X-Status
// header always carries the real state.
// GET /api/v1/filediffs/:id
func (h *FileDiffHandler) ReadDiff(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	fd, path, err := h.fileDiffs.Read(c.Request().Context(), id)
	if err != nil {
		return fileDiffError(c, err)
	}

	c.Response().Header().Set("X-Status", string(fd.Status))
	switch fd.Status {
	case models.StatusSucceeded:
		return c.File(path)
	case models.StatusFailed:
		return c.String(http.StatusOK, "Failed\n")
	default:
		return c.String(http.StatusOK, "Loading...\n")
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func fileDiffError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, diffgen.ErrNoSource):
		return c.JSON(http.StatusConflict, map[string]string{"error": "no source available for this change"})
	case repository.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDispatch):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
