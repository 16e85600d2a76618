package transport

import (
	"net/http"

	"stockroom/internal/middleware"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the product catalog and stock status
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers the product and inventory routes. deleteGuard
// restricts who may delete products.
func (h *ProductHandler) RegisterRoutes(r chi.Router, deleteGuard func(http.Handler) http.Handler) {
	r.Get("/api/inventory/summary", h.Summary)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/stream", h.Stream)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.With(deleteGuard).Delete("/{id}", h.Delete)
		r.Get("/{id}/stock", h.Stock)
	})
}

// Summary returns the dashboard stock counts with the products behind each
func (h *ProductHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.productService.StockSummary(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to compute inventory summary")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// List returns every product, newest first
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Create adds a product
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product, err := h.productService.Create(r.Context(), req.input(), actorFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Get returns one product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to load product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Update replaces a product's editable fields
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product, err := h.productService.Update(r.Context(), chi.URLParam(r, "id"), req.input(), actorFrom(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.productService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stock classifies one product and each of its variants
func (h *ProductHandler) Stock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.productService.ProductStock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to classify product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, stock)
}

// Stream pushes the product list as server-sent events whenever it changes
func (h *ProductHandler) Stream(w http.ResponseWriter, r *http.Request) {
	updates, cancel := h.productService.Watch(r.Context(), consumerKey(r))
	streamSnapshots(w, r, updates, cancel, h.logger)
}
