package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/distrodissect/dissector/cmd/dissector/container"
	"github.com/distrodissect/dissector/cmd/dissector/routes"
	"github.com/distrodissect/dissector/common/bootstrap"
	"github.com/distrodissect/dissector/common/db"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, DB, redis)
	components, err := bootstrap.Setup(ctx, "dissector",
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return database.InitSchema(ctx)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap dissector: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	startServer(e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(503, map[string]string{
				"status":  "unhealthy",
				"service": "dissector",
			})
		}
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "dissector",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterComparisonRoutes(e, serviceContainer)
	routes.RegisterFileDiffRoutes(e, serviceContainer)
}

// startServer starts the Echo server on the configured port
func startServer(e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	components.Logger.Info("Starting dissector", "port", port)

	if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
