package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/distrodissect/dissector/cmd/dissector/container"
	"github.com/distrodissect/dissector/cmd/dissector/handlers"
	"github.com/distrodissect/dissector/common/middleware"
)

// enqueueGuards returns the middleware for job-producing routes
func enqueueGuards(c *container.Container) []echo.MiddlewareFunc {
	if c.Limiter == nil {
		return nil
	}
	return []echo.MiddlewareFunc{
		middleware.RateLimit(c.Limiter, middleware.DefaultRequestLimits),
	}
}

// RegisterComparisonRoutes registers branch and comparison routes
func RegisterComparisonRoutes(e *echo.Echo, c *container.Container) {
	bh := handlers.NewBranchHandler(c.Store.Branches)
	rh := handlers.NewRecipeHandler(c.Store.Recipes)
	ch := handlers.NewComparisonHandler(c.ComparisonService)

	e.GET("/api/v1/branches", bh.List)
	e.GET("/api/v1/recipes/:id", rh.Get)

	comparisons := e.Group("/api/v1/comparisons")
	{
		comparisons.POST("/:from/:to", ch.Request, enqueueGuards(c)...)
		comparisons.GET("/:from/:to", ch.Get)
		comparisons.DELETE("/:from/:to", ch.Regenerate)
	}
}
