package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"oaigate/internal/models"
	"oaigate/internal/openai"
	"oaigate/internal/service"
)

// ImageHandler exposes image generation and job inspection endpoints.
type ImageHandler struct {
	imageSvc *service.ImageService
	logger   *slog.Logger
}

// NewImageHandler creates an image handler.
func NewImageHandler(imageSvc *service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{imageSvc: imageSvc, logger: logger}
}

// CreateImage handles POST /v1/images/generations.
// Raw HTTP handler: the success and error bodies follow the OpenAI images
// contract, including the 408 timeout-continuation shape.
func (h *ImageHandler) CreateImage(w http.ResponseWriter, r *http.Request) {
	var req openai.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "invalid_request_error")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required", "invalid_request_error")
		return
	}

	resp, err := h.imageSvc.Create(r.Context(), &req)
	if err != nil {
		var timeout *service.TimeoutError
		var backend *service.BackendError
		switch {
		case errors.As(err, &timeout):
			writeErrorWithTask(w, http.StatusRequestTimeout,
				"image generation did not finish in time; results will be delivered to the callback URL if one was provided",
				"timeout", timeout.TaskID)
		case errors.As(err, &backend):
			h.logger.Error("image backend dispatch failed", "error", err)
			writeError(w, http.StatusBadGateway, "image backend unavailable", "bad_gateway")
		default:
			h.logger.Error("image generation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "image generation failed", "internal_error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// =============================================================================
// Job inspection endpoints (huma, documented)
// =============================================================================

// JobSummary is the client-facing view of an image job.
type JobSummary struct {
	ID        string   `json:"id" doc:"Job ID"`
	Status    string   `json:"status" doc:"Job status (pending, processing, completed, failed)"`
	Prompt    string   `json:"prompt" doc:"Generation prompt"`
	Model     string   `json:"model" doc:"Backend model"`
	Size      string   `json:"size" doc:"Requested size"`
	URLs      []string `json:"urls,omitempty" doc:"Result URLs, aligned with ipfs_urls"`
	IPFSURLs  []string `json:"ipfs_urls,omitempty" doc:"Content-addressed URLs"`
	Error     string   `json:"error,omitempty" doc:"Failure reason"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func summarize(job *models.ImageJob) JobSummary {
	return JobSummary{
		ID:        job.ID,
		Status:    string(job.Status),
		Prompt:    job.Prompt,
		Model:     job.Model,
		Size:      job.Size,
		URLs:      job.URLs,
		IPFSURLs:  job.IPFSURLs,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// GetJobInput is the input for the job status endpoint.
type GetJobInput struct {
	ID string `path:"id" doc:"Job ID"`
}

// GetJobOutput is the job status response.
type GetJobOutput struct {
	Body JobSummary
}

// GetJob returns the current state of an image job.
func (h *ImageHandler) GetJob(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
	job, err := h.imageSvc.GetJob(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get job", err)
	}
	if job == nil {
		return nil, huma.Error404NotFound("job not found")
	}
	return &GetJobOutput{Body: summarize(job)}, nil
}

// ListJobsInput is the input for the job list endpoint.
type ListJobsInput struct {
	User   string `query:"user" required:"true" doc:"User identifier the jobs were created with"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// ListJobsOutput is the job list response.
type ListJobsOutput struct {
	Body struct {
		Jobs []JobSummary `json:"jobs"`
	}
}

// ListJobs returns a user's image jobs, newest first.
func (h *ImageHandler) ListJobs(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
	jobs, err := h.imageSvc.ListJobs(ctx, input.User, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list jobs", err)
	}

	out := &ListJobsOutput{}
	out.Body.Jobs = make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		out.Body.Jobs = append(out.Body.Jobs, summarize(job))
	}
	return out, nil
}

// DeliverySummary is one callback delivery attempt.
type DeliverySummary struct {
	ID             string `json:"id"`
	URL            string `json:"url" doc:"Callback URL"`
	Status         string `json:"status" doc:"delivered or failed"`
	StatusCode     *int   `json:"status_code,omitempty" doc:"HTTP status from the callback target"`
	ResponseTimeMs *int   `json:"response_time_ms,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// GetDeliveriesOutput is the delivery log response.
type GetDeliveriesOutput struct {
	Body struct {
		Deliveries []DeliverySummary `json:"deliveries"`
	}
}

// GetDeliveries returns the callback delivery log for a job.
func (h *ImageHandler) GetDeliveries(ctx context.Context, input *GetJobInput) (*GetDeliveriesOutput, error) {
	job, err := h.imageSvc.GetJob(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get job", err)
	}
	if job == nil {
		return nil, huma.Error404NotFound("job not found")
	}

	deliveries, err := h.imageSvc.GetDeliveries(ctx, input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get deliveries", err)
	}

	out := &GetDeliveriesOutput{}
	out.Body.Deliveries = make([]DeliverySummary, 0, len(deliveries))
	for _, d := range deliveries {
		out.Body.Deliveries = append(out.Body.Deliveries, DeliverySummary{
			ID:             d.ID,
			URL:            d.URL,
			Status:         string(d.Status),
			StatusCode:     d.StatusCode,
			ResponseTimeMs: d.ResponseTimeMs,
			ErrorMessage:   d.ErrorMessage,
			CreatedAt:      d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, nil
}
