package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/feed"
	"stockroom/internal/inventory"
	"stockroom/internal/middleware"
	"stockroom/internal/notification"
	"stockroom/internal/repository"

	"go.uber.org/zap"
)

// HeartbeatInterval is how often an idle live stream sends a keepalive comment
var HeartbeatInterval = 25 * time.Second

// decodeRequest decodes and validates a JSON body, writing the 400 response
// itself when that fails
func decodeRequest(w http.ResponseWriter, r *http.Request, v any, logger *zap.Logger) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.Error(err), zap.String("path", r.URL.Path))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondServiceError maps service and domain errors onto HTTP responses.
// Unrecognised errors are logged and reported as 500 with fallback as message.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var notFound *inventory.NotFoundError
	var invalid *inventory.ValidationError
	var insufficient *inventory.InsufficientStockError

	switch {
	case errors.As(err, &notFound):
		middleware.RespondWithErrorDetails(w, http.StatusNotFound, notFound.Error(), map[string]any{
			"scope": notFound.Scope,
		})
	case errors.Is(err, repository.ErrBatchNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "batch not found")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, notification.ErrNotificationNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "notification not found")
	case errors.As(err, &invalid):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, invalid.Error(), map[string]any{
			"field": invalid.Field,
		})
	case errors.As(err, &insufficient):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, insufficient.UserMessage(), map[string]any{
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.Is(err, context.Canceled):
		logger.Debug("Request canceled", zap.Error(err))
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// actorFrom returns the authenticated actor, or the zero actor
func actorFrom(r *http.Request) domain.Actor {
	actor, _ := middleware.GetActor(r.Context())
	return actor
}

// consumerKey identifies a live query consumer. Clients that open several
// streams (one per browser tab) tell them apart with ?consumer=.
func consumerKey(r *http.Request) string {
	return actorFrom(r).UserID() + ":" + r.URL.Query().Get("consumer")
}

type streamError struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// streamSnapshots writes every snapshot as a server-sent event until the
// client goes away or the subscription is cancelled (for example because the
// same consumer opened a newer stream).
func streamSnapshots[T any](w http.ResponseWriter, r *http.Request, updates <-chan feed.Snapshot[T], cancel feed.CancelFunc, logger *zap.Logger) {
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Warn("Streaming not supported by response writer", zap.Error(err))
		return
	}
	// Streams outlive the server write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	heartbeat := time.NewTicker(HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case snap, ok := <-updates:
			if !ok {
				return
			}

			event, payload := "snapshot", any(snap)
			if snap.Err != nil {
				event, payload = "error", streamError{Message: "live query failed", At: snap.At}
			}
			data, err := json.Marshal(payload)
			if err != nil {
				logger.Error("Failed to encode snapshot", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
