package common

import "errors"

// Failure taxonomy surfaced to API callers. Pipeline and search code wrap lower
// level adapter/store errors into one of these so handlers can translate them
// with errors.Is without inspecting internals.
var (
	ErrInvalidTenantID       = errors.New("invalid tenant id")
	ErrInvalidContent        = errors.New("invalid content")
	ErrPayloadTooLarge       = errors.New("payload too large")
	ErrInvalidLimit          = errors.New("invalid limit")
	ErrExtractionUnavailable = errors.New("extraction unavailable")
	ErrStoreWriteFailed      = errors.New("store write failed")
	ErrStoreReadFailed       = errors.New("store read failed")
	ErrSearchUnavailable     = errors.New("search unavailable")
	ErrPurgeIncomplete       = errors.New("purge incomplete")
)
