package routes

import (
	"net/http"
	"time"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/turkwise/graphmem/internal/server/middleware"
	"github.com/turkwise/graphmem/pkg/common"
	"github.com/turkwise/graphmem/pkg/graph"
	"github.com/turkwise/graphmem/pkg/logger"
)

// IngestEpisodeHandler accepts one episode for a tenant and runs the full
// extraction and upsert pipeline synchronously.
func IngestEpisodeHandler(c echo.Context) error {
	type ingestEpisodeBody struct {
		TenantID          string `json:"tenant_id" validate:"required"`
		Content           string `json:"content" validate:"required"`
		EpisodeType       string `json:"episode_type" validate:"omitempty,oneof=conversation event document"`
		SourceDescription string `json:"source_description"`
		ValidFrom         string `json:"valid_from" validate:"omitempty"`
	}

	type ingestEpisodeResponse struct {
		Error   string              `json:"error,omitempty"`
		Message string              `json:"message"`
		Result  *graph.IngestResult `json:"result,omitempty"`
	}

	data := new(ingestEpisodeBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestEpisodeResponse{
			Error:   "invalid_body",
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestEpisodeResponse{
			Error:   "invalid_body",
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	partitionKey, err := app.Resolver.Resolve(data.TenantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ingestEpisodeResponse{
			Error:   "invalid_tenant_id",
			Message: "Invalid tenant id",
		})
	}

	receivedAt := time.Now().UTC()
	validFrom := receivedAt
	if data.ValidFrom != "" {
		validFrom, err = time.Parse(time.RFC3339, data.ValidFrom)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ingestEpisodeResponse{
				Error:   "invalid_body",
				Message: "valid_from must be RFC3339",
			})
		}
		validFrom = validFrom.UTC()
	}

	episodeType := common.EpisodeType(data.EpisodeType)
	if episodeType == "" {
		episodeType = common.EpisodeTypeConversation
	}

	ctx := c.Request().Context()
	result, err := app.Graph.IngestEpisode(ctx, common.Episode{
		PartitionKey:      partitionKey,
		Content:           data.Content,
		EpisodeType:       episodeType,
		SourceDescription: data.SourceDescription,
		ReceivedAt:        receivedAt,
		ValidFrom:         validFrom,
	})
	if err != nil {
		logger.Error("episode ingestion failed", "tenant", data.TenantID, "err", err)
		status, kind, message := statusForError(err)
		return c.JSON(status, ingestEpisodeResponse{Error: kind, Message: message})
	}

	return c.JSON(http.StatusOK, ingestEpisodeResponse{
		Message: "Episode ingested successfully",
		Result:  result,
	})
}
