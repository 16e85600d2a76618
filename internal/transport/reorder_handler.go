package transport

import (
	"fmt"
	"net/http"

	"stockroom/internal/inventory"
	"stockroom/internal/middleware"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReorderResponse reports a committed transfer
type ReorderResponse struct {
	Message string                   `json:"message"`
	Result  inventory.TransferResult `json:"result"`
}

// ReorderHandler handles stock transfers from batches into products
type ReorderHandler struct {
	reorderService service.ReorderService
	logger         *zap.Logger
}

// NewReorderHandler creates a new ReorderHandler
func NewReorderHandler(reorderService service.ReorderService, logger *zap.Logger) *ReorderHandler {
	return &ReorderHandler{
		reorderService: reorderService,
		logger:         logger,
	}
}

// RegisterRoutes registers the reorder route
func (h *ReorderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/reorders", h.Reorder)
}

// Reorder moves units of one size from a batch into a product variant
func (h *ReorderHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	result, err := h.reorderService.ReorderFromBatch(r.Context(), req.transfer(), actorFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to transfer stock")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ReorderResponse{
		Message: fmt.Sprintf("Added %d items of size %s to %s", result.Quantity, result.Size, result.ProductName),
		Result:  result,
	})
}
