package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/logger"
)

// GetStatsHandler reports record counts for one tenant.
func GetStatsHandler(c echo.Context) error {
	type getStatsParams struct {
		TenantID string `param:"tenant_id" validate:"required"`
	}

	type getStatsResponse struct {
		Error   string              `json:"error,omitempty"`
		Message string              `json:"message,omitempty"`
		Stats   *common.TenantStats `json:"stats,omitempty"`
	}

	params := new(getStatsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getStatsResponse{
			Error:   "invalid_params",
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getStatsResponse{
			Error:   "invalid_params",
			Message: "Invalid request params",
		})
	}

	app := c.(*middleware.AppContext).App
	partitionKey, err := app.Resolver.Resolve(params.TenantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, getStatsResponse{
			Error:   "invalid_tenant_id",
			Message: "Invalid tenant id",
		})
	}

	ctx := c.Request().Context()
	stats, err := app.Graph.Stats(ctx, partitionKey)
	if err != nil {
		logger.Error("tenant stats failed", "tenant", params.TenantID, "err", err)
		status, kind, message := statusForError(err)
		return c.JSON(status, getStatsResponse{Error: kind, Message: message})
	}

	return c.JSON(http.StatusOK, getStatsResponse{Stats: &stats})
}
