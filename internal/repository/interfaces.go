// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"
	"time"

	"oaigate/internal/models"
)

// ImageJobUpdate describes a partial update to an image job.
// Nil slice/pointer fields are left unchanged; updated_at is always bumped.
type ImageJobUpdate struct {
	Status   models.ImageJobStatus
	URLs     []string
	IPFSURLs []string
	Error    *string
}

// ImageJobRepository defines methods for image job data access.
type ImageJobRepository interface {
	Create(ctx context.Context, job *models.ImageJob) error
	GetByID(ctx context.Context, id string) (*models.ImageJob, error)
	// ListByUserID returns jobs for a user ordered by created_at descending,
	// ties broken by id descending (ULIDs are time-ordered so this is stable).
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.ImageJob, error)
	// Update applies a partial update. Jobs already in a terminal state
	// (completed or failed) are left untouched; the call is a no-op then.
	Update(ctx context.Context, id string, upd ImageJobUpdate) error
	// MarkStaleProcessingFailed fails jobs stuck in processing longer than
	// maxAge. Used at startup to clean up after server restarts.
	MarkStaleProcessingFailed(ctx context.Context, maxAge time.Duration) (int64, error)
}

// WebhookDeliveryRepository defines methods for callback delivery tracking.
type WebhookDeliveryRepository interface {
	Create(ctx context.Context, delivery *models.WebhookDelivery) error
	GetByJobID(ctx context.Context, jobID string) ([]*models.WebhookDelivery, error)
}

// Repositories holds all repository instances.
type Repositories struct {
	ImageJob        ImageJobRepository
	WebhookDelivery WebhookDeliveryRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		ImageJob:        NewSQLiteImageJobRepository(db),
		WebhookDelivery: NewSQLiteWebhookDeliveryRepository(db),
	}
}
