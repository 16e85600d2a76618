package transport

import (
	"net/http"

	"stockroom/internal/domain"
	"stockroom/internal/middleware"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BatchHandler handles HTTP requests for batch inventory
type BatchHandler struct {
	batchService service.BatchService
	logger       *zap.Logger
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batchService service.BatchService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// RegisterRoutes registers all batch routes. deleteGuard restricts who may
// delete batches.
func (h *BatchHandler) RegisterRoutes(r chi.Router, deleteGuard func(http.Handler) http.Handler) {
	r.Route("/api/batches", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/stream", h.Stream)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.With(deleteGuard).Delete("/{id}", h.Delete)
	})
}

// List returns batches newest first, optionally filtered by ?status= or ?school=
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		batches []*domain.Batch
		err     error
	)

	query := r.URL.Query()
	switch {
	case query.Get("status") != "":
		batches, err = h.batchService.ListByStatus(r.Context(), domain.BatchStatus(query.Get("status")))
	case query.Get("school") != "":
		batches, err = h.batchService.ListBySchool(r.Context(), query.Get("school"))
	default:
		batches, err = h.batchService.List(r.Context())
	}
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list batches")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, batches)
}

// Create records a received batch
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	batch, err := h.batchService.Add(r.Context(), req.input(), actorFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create batch")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, batch)
}

// Get returns one batch
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	batch, err := h.batchService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load batch")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, batch)
}

// Update replaces a batch's editable fields
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	batch, err := h.batchService.Update(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update batch")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, batch)
}

// UpdateStatus moves a batch to another lifecycle state
func (h *BatchHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req BatchStatusRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.batchService.UpdateStatus(r.Context(), id, domain.BatchStatus(req.Status)); err != nil {
		respondServiceError(w, h.logger, err, "failed to update batch status")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}

// Delete removes a batch
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.batchService.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r)); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete batch")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream pushes the batch list as server-sent events whenever it changes.
// Opening a second stream for the same consumer ends the first one.
func (h *BatchHandler) Stream(w http.ResponseWriter, r *http.Request) {
	updates, cancel := h.batchService.Watch(r.Context(), consumerKey(r))
	streamSnapshots(w, r, updates, cancel, h.logger)
}
