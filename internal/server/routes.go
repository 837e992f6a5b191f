package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		app := c.(*middleware.AppContext).App
		status := "ok"
		graphStore := "connected"
		code := http.StatusOK
		if err := app.Store.Ping(c.Request().Context()); err != nil {
			status = "degraded"
			graphStore = "unreachable"
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]string{
			"status":      status,
			"graph_store": graphStore,
			"store":       app.StoreAddr,
		})
	})

	apiRoutes := e.Group("", middleware.AuthMiddleware)

	// Ingestion and retrieval routes
	apiRoutes.POST("/episodes", routes.IngestEpisodeHandler)
	apiRoutes.POST("/search", routes.SearchHandler)

	// Tenant inspection routes
	apiRoutes.GET("/entities/:tenant_id", routes.GetEntitiesHandler)
	apiRoutes.GET("/relationships/:tenant_id", routes.GetRelationshipsHandler)
	apiRoutes.GET("/stats/:tenant_id", routes.GetStatsHandler)

	// Tenant lifecycle routes
	apiRoutes.DELETE("/tenant/:tenant_id", routes.PurgeTenantHandler)
}
