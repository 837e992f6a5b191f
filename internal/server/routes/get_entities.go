package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/logger"
)

// GetEntitiesHandler lists all entities under one tenant.
func GetEntitiesHandler(c echo.Context) error {
	type getEntitiesParams struct {
		TenantID string `param:"tenant_id" validate:"required"`
	}

	type getEntitiesResponse struct {
		Error    string          `json:"error,omitempty"`
		Message  string          `json:"message,omitempty"`
		Entities []common.Entity `json:"entities"`
	}

	params := new(getEntitiesParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getEntitiesResponse{
			Error:   "invalid_params",
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getEntitiesResponse{
			Error:   "invalid_params",
			Message: "Invalid request params",
		})
	}

	app := c.(*middleware.AppContext).App
	partitionKey, err := app.Resolver.Resolve(params.TenantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, getEntitiesResponse{
			Error:   "invalid_tenant_id",
			Message: "Invalid tenant id",
		})
	}

	ctx := c.Request().Context()
	entities, err := app.Graph.ListEntities(ctx, partitionKey)
	if err != nil {
		logger.Error("listing entities failed", "tenant", params.TenantID, "err", err)
		status, kind, message := statusForError(err)
		return c.JSON(status, getEntitiesResponse{Error: kind, Message: message})
	}

	return c.JSON(http.StatusOK, getEntitiesResponse{Entities: entities})
}
