package api

import "github.com/phrazzld/scry-ingest/internal/batch"

// StatusResponse represents the response data for GET /status
type StatusResponse struct {
	Status            batch.RunStatus `json:"status"`
	Outcome           batch.Outcome   `json:"outcome"`
	Summary           string          `json:"summary"`
	Stats             batch.Stats     `json:"stats"`
	AverageDurationMs int64           `json:"average_duration_ms"`
	Progress          batch.Progress  `json:"progress"`
	ETASeconds        int             `json:"eta_seconds"`
}

// ItemResponse represents a single work item
type ItemResponse struct {
	ID         string           `json:"id"`
	Status     batch.ItemStatus `json:"status"`
	RetryCount int              `json:"retry_count"`
	LastError  string           `json:"last_error,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// SkipItemsRequest represents the request body for POST /items/skip
type SkipItemsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=1000,dive,required,max=256"`
}

// SkipItemsResponse lists which of the requested ids were skipped
type SkipItemsResponse struct {
	Skipped    []string `json:"skipped"`
	NotSkipped []string `json:"not_skipped"`
}

// CountResponse carries the number of items affected by an operation
type CountResponse struct {
	Count int `json:"count"`
}

func itemToResponse(item batch.WorkItem) ItemResponse {
	return ItemResponse{
		ID:         item.ID,
		Status:     item.Status,
		RetryCount: item.RetryCount,
		LastError:  item.LastError,
		DurationMs: item.ProcessingDurationMs(),
	}
}
