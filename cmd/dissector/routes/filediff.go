package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/distrodissect/dissector/cmd/dissector/container"
	"github.com/distrodissect/dissector/cmd/dissector/handlers"
)

// RegisterFileDiffRoutes registers difference and file diff routes
func RegisterFileDiffRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewFileDiffHandler(c.FileDiffService)

	differences := e.Group("/api/v1/differences")
	{
		differences.GET("/:id", h.GetDifference)
		differences.POST("/:id/diff", h.RequestDiff, enqueueGuards(c)...)
	}

	e.GET("/api/v1/filediffs/:id", h.ReadDiff)
}
