package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"oaigate/internal/config"
	"oaigate/internal/ipfs"
	"oaigate/internal/models"
	"oaigate/internal/openai"
	"oaigate/internal/rendezvous"
	"oaigate/internal/replicate"
	"oaigate/internal/repository"
)

// BackendError indicates the image backend call itself failed; surfaces
// as 502.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return "image backend error: " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

// TimeoutError is the timeout-continuation signal: the job is still running
// server-side and TaskID lets the client correlate the eventual callback.
// Surfaces as 408.
type TimeoutError struct {
	TaskID string
}

func (e *TimeoutError) Error() string {
	return "image generation still in progress, task " + e.TaskID
}

// ImageService coordinates asynchronous image generation: it persists a
// job, dispatches the backend call, waits a bounded time for the backend's
// webhook, and completes either inline or through a client callback.
type ImageService struct {
	cfg       *config.Config
	repos     *repository.Repositories
	registry  *rendezvous.Registry
	backend   *replicate.Client
	pinner    *ipfs.Client
	callbacks *CallbackService
	fetcher   *http.Client // image bytes for b64_json responses
	logger    *slog.Logger
}

// NewImageService creates a new image service.
func NewImageService(cfg *config.Config, repos *repository.Repositories, registry *rendezvous.Registry, callbacks *CallbackService, logger *slog.Logger) *ImageService {
	return &ImageService{
		cfg:       cfg,
		repos:     repos,
		registry:  registry,
		backend:   replicate.NewClient(cfg.ReplicateAPIURL, cfg.ReplicateAPIKey),
		pinner:    ipfs.NewClient(cfg.IPFSURL, logger),
		callbacks: callbacks,
		fetcher: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Create handles one image generation request end to end: persist, dispatch,
// wait bounded, respond. A *TimeoutError return means the job continues
// asynchronously and will resolve through the webhook path.
func (s *ImageService) Create(ctx context.Context, req *openai.ImageRequest) (*openai.ImageResponse, error) {
	if req.N <= 0 {
		req.N = 1
	}
	if req.Size == "" {
		req.Size = "1024x1024"
	}
	if req.ResponseFormat == "" {
		req.ResponseFormat = "url"
	}

	id := ulid.Make().String()
	model := openai.ResolveImageModel(req.Model)
	now := time.Now()

	job := &models.ImageJob{
		ID:          id,
		Status:      models.ImageJobStatusProcessing,
		Prompt:      req.Prompt,
		Model:       model,
		Size:        req.Size,
		UserID:      req.User,
		CallbackURL: req.CallbackURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.ImageJob.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist image job: %w", err)
	}

	// Register before dispatch so the webhook can never race ahead of us.
	s.registry.Register(id)

	prediction := replicate.PredictionRequest{
		Input: replicate.PredictionInput{
			Prompt:          req.Prompt,
			AspectRatio:     openai.ResolveAspectRatio(req.Size),
			OutputFormat:    "png",
			SafetyTolerance: 2,
			Raw:             false,
			NumOutputs:      req.N,
		},
		Webhook: s.cfg.WebhookURL(id),
	}

	if _, err := s.backend.CreatePrediction(ctx, model, prediction); err != nil {
		s.failJob(ctx, id, err.Error())
		s.registry.Drop(id)
		return nil, &BackendError{Err: err}
	}

	s.logger.Info("image job dispatched", "job_id", id, "model", model, "size", req.Size)

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ImageWaitTimeout)
	defer cancel()

	result, ok := s.registry.Wait(waitCtx, id)
	if !ok {
		// Refresh updated_at so the stale-job sweep doesn't reap a job
		// that is merely slow.
		if err := s.repos.ImageJob.Update(ctx, id, repository.ImageJobUpdate{
			Status: models.ImageJobStatusProcessing,
		}); err != nil {
			s.logger.Error("failed to refresh job after timeout", "job_id", id, "error", err)
		}
		s.logger.Info("image job continuing asynchronously", "job_id", id)
		return nil, &TimeoutError{TaskID: id}
	}

	data, err := s.buildImageData(ctx, result, req.ResponseFormat)
	if err != nil {
		return nil, err
	}

	if err := s.repos.ImageJob.Update(ctx, id, repository.ImageJobUpdate{
		Status:   models.ImageJobStatusCompleted,
		URLs:     result.URLs,
		IPFSURLs: result.IPFSURLs,
	}); err != nil {
		s.logger.Error("failed to mark job completed", "job_id", id, "error", err)
	}
	s.registry.Drop(id)

	return &openai.ImageResponse{
		Created: time.Now().Unix(),
		Data:    data,
	}, nil
}

// HandleWebhook processes the backend's completion notification for a job.
// State is persisted before any waiter is woken and before any client
// callback fires, so every observer sees the durable record first. Once a
// terminal outcome is recorded the rendezvous entry is dropped; in-flight
// waiters keep their reference and resolve on their own.
func (s *ImageService) HandleWebhook(ctx context.Context, id string, payload *replicate.WebhookPayload) {
	job, err := s.repos.ImageJob.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load job for webhook", "job_id", id, "error", err)
		return
	}
	if job == nil {
		s.logger.Warn("webhook for unknown job", "job_id", id)
		return
	}
	if job.Status.Terminal() {
		// Backend redelivery after the outcome was already recorded.
		// Pinning and the client callback must not run twice.
		s.logger.Debug("ignoring webhook for finished job", "job_id", id, "status", job.Status)
		s.registry.Drop(id)
		return
	}

	if payload.Status != "succeeded" || len(payload.Output) == 0 {
		reason := fmt.Sprintf("backend job failed with status: %s", payload.Status)
		if payload.Error != "" {
			reason += ": " + payload.Error
		}
		s.logger.Warn("image job failed", "job_id", id, "status", payload.Status, "backend_error", payload.Error)
		s.failJob(ctx, id, reason)
		s.registry.Drop(id)
		return
	}

	urls := []string(payload.Output)
	cids, err := s.pinner.Pin(ctx, urls)
	if err != nil {
		s.logger.Error("failed to pin job output", "job_id", id, "error", err)
		s.failJob(ctx, id, "failed to pin output: "+err.Error())
		s.registry.Drop(id)
		return
	}

	result := models.ImageTaskResult{URLs: urls, IPFSURLs: cids}

	if err := s.repos.ImageJob.Update(ctx, id, repository.ImageJobUpdate{
		Status:   models.ImageJobStatusCompleted,
		URLs:     urls,
		IPFSURLs: cids,
	}); err != nil {
		s.logger.Error("failed to mark job completed", "job_id", id, "error", err)
	}

	s.registry.Publish(id, result)
	s.logger.Info("image job completed", "job_id", id, "outputs", len(urls))

	if job.CallbackURL != "" {
		data := make([]openai.ImageData, len(urls))
		for i := range urls {
			data[i] = openai.ImageData{URL: urls[i], IPFSURL: cids[i]}
		}
		s.callbacks.Deliver(ctx, id, job.CallbackURL, data)
	}
	s.registry.Drop(id)
}

// GetJob returns a job by id, nil when unknown.
func (s *ImageService) GetJob(ctx context.Context, id string) (*models.ImageJob, error) {
	return s.repos.ImageJob.GetByID(ctx, id)
}

// ListJobs returns a user's jobs, newest first.
func (s *ImageService) ListJobs(ctx context.Context, userID string, limit, offset int) ([]*models.ImageJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.ImageJob.ListByUserID(ctx, userID, limit, offset)
}

// GetDeliveries returns the callback delivery log for a job.
func (s *ImageService) GetDeliveries(ctx context.Context, jobID string) ([]*models.WebhookDelivery, error) {
	return s.repos.WebhookDelivery.GetByJobID(ctx, jobID)
}

// SweepStaleJobs fails jobs stuck in processing from before a restart.
func (s *ImageService) SweepStaleJobs(ctx context.Context) {
	count, err := s.repos.ImageJob.MarkStaleProcessingFailed(ctx, s.cfg.StaleJobMaxAge)
	if err != nil {
		s.logger.Error("stale job sweep failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("failed stale jobs", "count", count)
	}
}

func (s *ImageService) buildImageData(ctx context.Context, result *models.ImageTaskResult, format string) ([]openai.ImageData, error) {
	if format == "b64_json" {
		data := make([]openai.ImageData, len(result.URLs))
		for i, url := range result.URLs {
			encoded, err := s.fetchBase64(ctx, url)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch image for b64 response: %w", err)
			}
			data[i] = openai.ImageData{B64JSON: encoded}
		}
		return data, nil
	}

	data := make([]openai.ImageData, len(result.URLs))
	for i, url := range result.URLs {
		item := openai.ImageData{URL: url}
		if i < len(result.IPFSURLs) {
			item.IPFSURL = result.IPFSURLs[i]
		}
		data[i] = item
	}
	return data, nil
}

func (s *ImageService) fetchBase64(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.fetcher.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (s *ImageService) failJob(ctx context.Context, id, reason string) {
	if err := s.repos.ImageJob.Update(ctx, id, repository.ImageJobUpdate{
		Status: models.ImageJobStatusFailed,
		Error:  &reason,
	}); err != nil {
		s.logger.Error("failed to mark job failed", "job_id", id, "error", err)
	}
}
