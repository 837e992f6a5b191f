package routes

import (
	"net/http"
	"time"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/logger"
)

// GetRelationshipsHandler lists one tenant's edges. as_of filters to edges
// valid at an RFC3339 instant; current=true filters to open edges.
func GetRelationshipsHandler(c echo.Context) error {
	type getRelationshipsParams struct {
		TenantID string `param:"tenant_id" validate:"required"`
		AsOf     string `query:"as_of" validate:"omitempty"`
		Current  bool   `query:"current"`
	}

	type getRelationshipsResponse struct {
		Error         string                `json:"error,omitempty"`
		Message       string                `json:"message,omitempty"`
		Relationships []common.Relationship `json:"relationships"`
	}

	params := new(getRelationshipsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getRelationshipsResponse{
			Error:   "invalid_params",
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getRelationshipsResponse{
			Error:   "invalid_params",
			Message: "Invalid request params",
		})
	}

	var asOf *time.Time
	if params.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, params.AsOf)
		if err != nil {
			return c.JSON(http.StatusBadRequest, getRelationshipsResponse{
				Error:   "invalid_params",
				Message: "as_of must be RFC3339",
			})
		}
		parsed = parsed.UTC()
		asOf = &parsed
	}

	app := c.(*middleware.AppContext).App
	partitionKey, err := app.Resolver.Resolve(params.TenantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, getRelationshipsResponse{
			Error:   "invalid_tenant_id",
			Message: "Invalid tenant id",
		})
	}

	ctx := c.Request().Context()
	relationships, err := app.Graph.ListRelationships(ctx, partitionKey, asOf, params.Current)
	if err != nil {
		logger.Error("listing relationships failed", "tenant", params.TenantID, "err", err)
		status, kind, message := statusForError(err)
		return c.JSON(status, getRelationshipsResponse{Error: kind, Message: message})
	}

	return c.JSON(http.StatusOK, getRelationshipsResponse{Relationships: relationships})
}
