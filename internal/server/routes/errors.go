package routes

import (
	"errors"
	"net/http"

	"github.com/turkwise/graphmem/pkg/common"
)

// statusForError translates the pipeline failure taxonomy into an HTTP
// status code, a stable machine-readable error kind and a human message.
// Transient extraction, store and search failures are 502 so callers can
// tell "retry later" apart from a bad request or a genuine server bug.
// Anything unrecognized is an internal error.
func statusForError(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrInvalidTenantID):
		return http.StatusBadRequest, "invalid_tenant_id", "Invalid tenant id"
	case errors.Is(err, common.ErrInvalidContent):
		return http.StatusBadRequest, "invalid_content", "Content has no extractable text"
	case errors.Is(err, common.ErrInvalidLimit):
		return http.StatusBadRequest, "invalid_limit", "Invalid limit"
	case errors.Is(err, common.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large", "Content too large"
	case errors.Is(err, common.ErrExtractionUnavailable):
		return http.StatusBadGateway, "extraction_unavailable", "Extraction unavailable"
	case errors.Is(err, common.ErrSearchUnavailable):
		return http.StatusBadGateway, "search_unavailable", "Search unavailable"
	case errors.Is(err, common.ErrPurgeIncomplete):
		return http.StatusBadGateway, "purge_incomplete", "Purge incomplete"
	case errors.Is(err, common.ErrStoreWriteFailed),
		errors.Is(err, common.ErrStoreReadFailed):
		return http.StatusBadGateway, "store_unavailable", "Graph store unavailable"
	}
	return http.StatusInternalServerError, "internal_error", "Internal server error"
}
