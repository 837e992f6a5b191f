package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/logger"
)

// SearchHandler runs hybrid retrieval over one tenant's graph.
func SearchHandler(c echo.Context) error {
	type searchBody struct {
		TenantID string `json:"tenant_id" validate:"required"`
		Query    string `json:"query" validate:"required"`
		Limit    int    `json:"limit"`
	}

	type searchResponse struct {
		Error    string                `json:"error,omitempty"`
		Message  string                `json:"message,omitempty"`
		Degraded bool                  `json:"degraded,omitempty"`
		Results  []common.SearchResult `json:"results"`
	}

	data := new(searchBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Error:   "invalid_body",
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Error:   "invalid_body",
			Message: "Invalid request body",
		})
	}
	if data.Limit == 0 {
		data.Limit = 10
	}

	app := c.(*middleware.AppContext).App
	partitionKey, err := app.Resolver.Resolve(data.TenantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Error:   "invalid_tenant_id",
			Message: "Invalid tenant id",
		})
	}

	ctx := c.Request().Context()
	results, degraded, err := app.Graph.Search(ctx, partitionKey, data.Query, data.Limit)
	if err != nil {
		logger.Error("search failed", "tenant", data.TenantID, "err", err)
		status, kind, message := statusForError(err)
		return c.JSON(status, searchResponse{Error: kind, Message: message})
	}

	return c.JSON(http.StatusOK, searchResponse{Results: results, Degraded: degraded})
}
