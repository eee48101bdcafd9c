package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"oaigate/internal/replicate"
	"oaigate/internal/service"
)

// WebhookHandler receives completion notifications from the image backend.
type WebhookHandler struct {
	imageSvc *service.ImageService
	logger   *slog.Logger
}

// NewWebhookHandler creates a backend webhook handler.
func NewWebhookHandler(imageSvc *service.ImageService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{imageSvc: imageSvc, logger: logger}
}

// ReplicateWebhook handles POST /v1/webhook/replicate/{id}.
// Once the id parses, the response is 200 regardless of downstream
// outcome: the backend retries on non-2xx, and a retry after state is
// recorded would only cause duplicate work.
func (h *WebhookHandler) ReplicateWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := ulid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id", "invalid_request_error")
		return
	}

	var payload replicate.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("webhook body unreadable", "job_id", id, "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.imageSvc.HandleWebhook(r.Context(), id, &payload)
	w.WriteHeader(http.StatusOK)
}
