package transport

import (
	"context"
	"net/http"

	"stockroom/internal/domain"
	"stockroom/internal/feed"
	"stockroom/internal/middleware"
	"stockroom/internal/notification"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// QueryNotifications names the notification stream in the subscription registry
const QueryNotifications = "notifications:timestamp desc"

// NotificationCenter is the part of notification.Center the handler needs
type NotificationCenter interface {
	List(ctx context.Context, filter notification.Filter) ([]domain.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	Enabled() bool
	SetEnabled(enabled bool)
	Toggle() bool
	Subscribe(ctx context.Context) (<-chan feed.Snapshot[domain.Notification], feed.CancelFunc)
}

// NotificationListResponse is the notification center view
type NotificationListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
	Enabled       bool                  `json:"enabled"`
}

// NotificationSettingsResponse reports whether live delivery is on
type NotificationSettingsResponse struct {
	Enabled bool `json:"enabled"`
}

// NotificationHandler handles HTTP requests for the notification center
type NotificationHandler struct {
	center   NotificationCenter
	registry *feed.Registry
	logger   *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(center NotificationCenter, registry *feed.Registry, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		center:   center,
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers all notification routes
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Delete("/", h.ClearAll)
		r.Get("/stream", h.Stream)
		r.Post("/read-all", h.MarkAllAsRead)
		r.Put("/settings", h.UpdateSettings)
		r.Post("/toggle", h.Toggle)
		r.Post("/{id}/read", h.MarkAsRead)
		r.Delete("/{id}", h.Remove)
	})
}

// List returns notifications newest first. ?filter= accepts all, unread or a category.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := notification.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, err.Error(), map[string]any{"field": "filter"})
		return
	}

	items, err := h.center.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list notifications")
		return
	}
	unread, err := h.center.UnreadCount(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to count notifications")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, NotificationListResponse{
		Notifications: items,
		UnreadCount:   unread,
		Enabled:       h.center.Enabled(),
	})
}

// MarkAsRead marks one notification read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.center.MarkAsRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, h.logger, err, "failed to mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllAsRead marks every notification read
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.center.MarkAllAsRead(r.Context()); err != nil {
		respondServiceError(w, h.logger, err, "failed to mark notifications read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove deletes one notification
func (h *NotificationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.center.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, h.logger, err, "failed to remove notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearAll deletes every notification
func (h *NotificationHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.center.ClearAll(r.Context()); err != nil {
		respondServiceError(w, h.logger, err, "failed to clear notifications")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings switches live delivery on or off
func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req NotificationSettingsRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	h.center.SetEnabled(*req.Enabled)
	h.logger.Info("Notification delivery updated",
		zap.Bool("enabled", *req.Enabled),
		zap.String("actor_id", actorFrom(r).UserID()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, NotificationSettingsResponse{Enabled: *req.Enabled})
}

// Toggle flips live delivery
func (h *NotificationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	enabled := h.center.Toggle()
	h.logger.Info("Notification delivery toggled",
		zap.Bool("enabled", enabled),
		zap.String("actor_id", actorFrom(r).UserID()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, NotificationSettingsResponse{Enabled: enabled})
}

// Stream pushes the notification list as server-sent events whenever it changes
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	updates, cancel := h.center.Subscribe(r.Context())
	cancel = h.registry.Track(consumerKey(r), QueryNotifications, cancel)
	streamSnapshots(w, r, updates, cancel, h.logger)
}
