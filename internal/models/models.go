// Package models defines the domain models for the gateway.
package models

import (
	"time"
)

// ImageJobStatus represents the lifecycle state of an image generation job.
type ImageJobStatus string

const (
	ImageJobStatusPending    ImageJobStatus = "pending"
	ImageJobStatusProcessing ImageJobStatus = "processing"
	ImageJobStatusCompleted  ImageJobStatus = "completed"
	ImageJobStatusFailed     ImageJobStatus = "failed"
)

// Terminal reports whether the status is final. Completed and failed jobs
// never transition again; later updates must not overwrite them.
func (s ImageJobStatus) Terminal() bool {
	return s == ImageJobStatusCompleted || s == ImageJobStatusFailed
}

// ImageJob is the durable record of an image generation request.
// URLs and IPFSURLs are positionally aligned: IPFSURLs[i] is the pinned
// copy of the bytes behind URLs[i].
type ImageJob struct {
	ID          string         `json:"id"`
	Status      ImageJobStatus `json:"status"`
	Prompt      string         `json:"prompt"`
	Model       string         `json:"model"` // resolved backend model, not the client alias
	Size        string         `json:"size"`  // WxH as requested by the client
	URLs        []string       `json:"urls,omitempty"`
	IPFSURLs    []string       `json:"ipfs_urls,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ImageTaskResult is the value published through the rendezvous when a
// backend webhook resolves a job. Immutable once published.
type ImageTaskResult struct {
	URLs     []string `json:"urls"`
	IPFSURLs []string `json:"ipfs_urls"`
}

// WebhookDeliveryStatus represents the outcome of a callback delivery attempt.
type WebhookDeliveryStatus string

const (
	WebhookDeliveryStatusDelivered WebhookDeliveryStatus = "delivered"
	WebhookDeliveryStatusFailed    WebhookDeliveryStatus = "failed"
)

// WebhookDelivery records a single client-callback POST for an image job.
// Callbacks are fire-once; the record is the audit trail, not a retry queue.
type WebhookDelivery struct {
	ID             string                `json:"id"`
	JobID          string                `json:"job_id"`
	URL            string                `json:"url"`
	PayloadJSON    string                `json:"payload_json"`
	StatusCode     *int                  `json:"status_code,omitempty"`
	ResponseTimeMs *int                  `json:"response_time_ms,omitempty"`
	Status         WebhookDeliveryStatus `json:"status"`
	ErrorMessage   string                `json:"error_message,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}
