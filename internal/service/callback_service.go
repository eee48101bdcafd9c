package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"oaigate/internal/models"
	"oaigate/internal/repository"
)

// CallbackService delivers job results to client-supplied callback URLs.
// Delivery is a single attempt: the backend's own webhook already retried
// until we recorded state, and clients polling the job endpoint can always
// recover results, so redelivery would only risk duplicate processing on
// the client side. Every attempt is recorded.
type CallbackService struct {
	deliveries repository.WebhookDeliveryRepository
	logger     *slog.Logger
	client     *http.Client
}

// NewCallbackService creates a new callback service.
func NewCallbackService(repos *repository.Repositories, logger *slog.Logger) *CallbackService {
	return &CallbackService{
		deliveries: repos.WebhookDelivery,
		logger:     logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Deliver POSTs payload to url and records the outcome against jobID.
// Errors are logged and recorded, never returned: by the time a callback
// fires, job state is already durable and the caller has nothing to undo.
func (s *CallbackService) Deliver(ctx context.Context, jobID, url string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("callback: failed to marshal payload", "job_id", jobID, "error", err)
		return
	}

	record := &models.WebhookDelivery{
		JobID:       jobID,
		URL:         url,
		PayloadJSON: string(body),
	}

	start := time.Now()
	statusCode, err := s.post(ctx, url, body)
	elapsed := int(time.Since(start).Milliseconds())
	record.ResponseTimeMs = &elapsed

	if statusCode != 0 {
		record.StatusCode = &statusCode
	}

	switch {
	case err != nil:
		record.Status = models.WebhookDeliveryStatusFailed
		record.ErrorMessage = err.Error()
		s.logger.Warn("callback: delivery failed", "job_id", jobID, "url", url, "error", err)
	case statusCode < 200 || statusCode >= 300:
		record.Status = models.WebhookDeliveryStatusFailed
		record.ErrorMessage = "non-success status " + http.StatusText(statusCode)
		s.logger.Warn("callback: non-success status", "job_id", jobID, "url", url, "status", statusCode)
	default:
		record.Status = models.WebhookDeliveryStatusDelivered
		s.logger.Info("callback: delivered", "job_id", jobID, "url", url, "status", statusCode)
	}

	if err := s.deliveries.Create(ctx, record); err != nil {
		s.logger.Error("callback: failed to record delivery", "job_id", jobID, "error", err)
	}
}

func (s *CallbackService) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "oaigate-webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
