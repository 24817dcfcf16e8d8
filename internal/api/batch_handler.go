package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	apiMiddleware "github.com/phrazzld/scry-ingest/internal/api/middleware"
	"github.com/phrazzld/scry-ingest/internal/api/shared"
	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/platform/logger"
)

// Controller is the part of *batch.Scheduler the API drives.
type Controller interface {
	Status() batch.RunStatus
	Stats() batch.Stats
	Progress() batch.Progress
	EstimatedSecondsRemaining() int
	Summary() batch.Summary
	Item(id string) (batch.WorkItem, bool)

	Pause() error
	Resume() error
	Cancel() error
	RetryFailed() int
	SkipItem(id string) bool
}

var _ Controller = (*batch.Scheduler)(nil)

// BatchHandler handles batch control HTTP requests
type BatchHandler struct {
	controller Controller
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(controller Controller) *BatchHandler {
	return &BatchHandler{controller: controller}
}

// GetStatus handles GET /status
func (h *BatchHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.controller.Stats()
	summary := h.controller.Summary()

	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Status:            h.controller.Status(),
		Outcome:           summary.Outcome(),
		Summary:           summary.String(),
		Stats:             stats,
		AverageDurationMs: stats.AverageDurationMs(),
		Progress:          h.controller.Progress(),
		ETASeconds:        h.controller.EstimatedSecondsRemaining(),
	})
}

// Pause handles POST /pause
func (h *BatchHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "pause", h.controller.Pause)
}

// Resume handles POST /resume
func (h *BatchHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "resume", h.controller.Resume)
}

// Cancel handles POST /cancel
func (h *BatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel", h.controller.Cancel)
}

func (h *BatchHandler) transition(w http.ResponseWriter, r *http.Request, name string, fn func() error) {
	if err := fn(); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	operator, _ := apiMiddleware.GetOperator(r)
	logger.FromContext(r.Context()).Info("batch control operation applied",
		"operation", name,
		"operator", operator,
		"status", h.controller.Status())
	h.GetStatus(w, r)
}

// RetryFailed handles POST /retry-failed
func (h *BatchHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	n := h.controller.RetryFailed()
	shared.RespondWithJSON(w, r, http.StatusOK, CountResponse{Count: n})
}

// GetItem handles GET /items/{id}
func (h *BatchHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.controller.Item(chi.URLParam(r, "id"))
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Item not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// SkipItem handles POST /items/{id}/skip
func (h *BatchHandler) SkipItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, ok := h.controller.Item(id); !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Item not found")
		return
	}
	if !h.controller.SkipItem(id) {
		shared.RespondWithError(w, r, http.StatusConflict, "Only pending items can be skipped")
		return
	}

	item, _ := h.controller.Item(id)
	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// SkipItems handles POST /items/skip
func (h *BatchHandler) SkipItems(w http.ResponseWriter, r *http.Request) {
	var req SkipItemsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request: ids must be a non-empty list", err)
		return
	}

	resp := SkipItemsResponse{Skipped: []string{}, NotSkipped: []string{}}
	for _, id := range req.IDs {
		if h.controller.SkipItem(id) {
			resp.Skipped = append(resp.Skipped, id)
		} else {
			resp.NotSkipped = append(resp.NotSkipped, id)
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
