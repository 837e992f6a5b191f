package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/pkg/logger"
	"github.com/turkwise/graphmem/pkg/store"
)

// PurgeTenantHandler deletes everything under one tenant. The confirm=true
// query parameter is required so the tenant cannot be wiped by a stray call.
func PurgeTenantHandler(c echo.Context) error {
	type purgeTenantParams struct {
		TenantID string `param:"tenant_id" validate:"required"`
		Confirm  bool   `query:"confirm"`
	}

	type purgeTenantResponse struct {
		Error   string             `json:"error,omitempty"`
		Message string             `json:"message"`
		Deleted bool               `json:"deleted"`
		Result  *store.PurgeResult `json:"result,omitempty"`
	}

	params := new(purgeTenantParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, purgeTenantResponse{
			Error:   "invalid_params",
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, purgeTenantResponse{
			Error:   "invalid_params",
			Message: "Invalid request params",
		})
	}
	if !params.Confirm {
		return c.JSON(http.StatusBadRequest, purgeTenantResponse{
			Error:   "confirmation_required",
			Message: "Pass confirm=true to delete all tenant data",
		})
	}

	app := c.(*middleware.AppContext).App
	partitionKey, err := app.Resolver.Resolve(params.TenantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, purgeTenantResponse{
			Error:   "invalid_tenant_id",
			Message: "Invalid tenant id",
		})
	}

	ctx := c.Request().Context()
	result, err := app.Graph.PurgeTenant(ctx, partitionKey)
	if err != nil {
		logger.Error("tenant purge failed", "tenant", params.TenantID, "err", err)
		status, kind, message := statusForError(err)
		return c.JSON(status, purgeTenantResponse{Error: kind, Message: message, Result: &result})
	}

	return c.JSON(http.StatusOK, purgeTenantResponse{
		Message: "Tenant data deleted",
		Deleted: true,
		Result:  &result,
	})
}
