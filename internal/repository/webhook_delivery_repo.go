package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"oaigate/internal/models"
)

// SQLiteWebhookDeliveryRepository implements WebhookDeliveryRepository for SQLite/libsql.
type SQLiteWebhookDeliveryRepository struct {
	db *sql.DB
}

// NewSQLiteWebhookDeliveryRepository creates a new SQLite webhook delivery repository.
func NewSQLiteWebhookDeliveryRepository(db *sql.DB) *SQLiteWebhookDeliveryRepository {
	return &SQLiteWebhookDeliveryRepository{db: db}
}

// Create creates a new callback delivery record.
func (r *SQLiteWebhookDeliveryRepository) Create(ctx context.Context, delivery *models.WebhookDelivery) error {
	if delivery.ID == "" {
		delivery.ID = ulid.Make().String()
	}
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now()
	}

	var statusCode, responseTimeMs sql.NullInt64
	if delivery.StatusCode != nil {
		statusCode = sql.NullInt64{Int64: int64(*delivery.StatusCode), Valid: true}
	}
	if delivery.ResponseTimeMs != nil {
		responseTimeMs = sql.NullInt64{Int64: int64(*delivery.ResponseTimeMs), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (
			id, job_id, url, payload_json, status_code, response_time_ms,
			status, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, delivery.ID, delivery.JobID, delivery.URL, delivery.PayloadJSON,
		statusCode, responseTimeMs, delivery.Status,
		nullString(delivery.ErrorMessage), delivery.CreatedAt.UTC().Format(time.RFC3339))

	return err
}

// GetByJobID retrieves all callback deliveries for a job, newest first.
func (r *SQLiteWebhookDeliveryRepository) GetByJobID(ctx context.Context, jobID string) ([]*models.WebhookDelivery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, url, payload_json, status_code, response_time_ms,
			   status, error_message, created_at
		FROM webhook_deliveries
		WHERE job_id = ?
		ORDER BY created_at DESC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var deliveries []*models.WebhookDelivery
	for rows.Next() {
		var delivery models.WebhookDelivery
		var statusCode, responseTimeMs sql.NullInt64
		var errorMessage sql.NullString
		var createdAt string

		err := rows.Scan(
			&delivery.ID,
			&delivery.JobID,
			&delivery.URL,
			&delivery.PayloadJSON,
			&statusCode,
			&responseTimeMs,
			&delivery.Status,
			&errorMessage,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}

		if statusCode.Valid {
			v := int(statusCode.Int64)
			delivery.StatusCode = &v
		}
		if responseTimeMs.Valid {
			v := int(responseTimeMs.Int64)
			delivery.ResponseTimeMs = &v
		}
		delivery.ErrorMessage = errorMessage.String
		delivery.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		deliveries = append(deliveries, &delivery)
	}

	return deliveries, rows.Err()
}
