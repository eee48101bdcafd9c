package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"oaigate/internal/models"
)

// SQLiteImageJobRepository implements ImageJobRepository for SQLite/libsql.
type SQLiteImageJobRepository struct {
	db *sql.DB
}

// NewSQLiteImageJobRepository creates a new SQLite image job repository.
func NewSQLiteImageJobRepository(db *sql.DB) *SQLiteImageJobRepository {
	return &SQLiteImageJobRepository{db: db}
}

const imageJobColumns = `id, status, prompt, model, size, urls, ipfs_urls, user_id, callback_url, error, created_at, updated_at`

func (r *SQLiteImageJobRepository) Create(ctx context.Context, job *models.ImageJob) error {
	query := `
		INSERT INTO image_jobs (` + imageJobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.Status,
		job.Prompt,
		job.Model,
		job.Size,
		nullJSON(job.URLs),
		nullJSON(job.IPFSURLs),
		nullString(job.UserID),
		nullString(job.CallbackURL),
		nullString(job.Error),
		job.CreatedAt.UTC().Format(time.RFC3339),
		job.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create image job: %w", err)
	}
	return nil
}

func (r *SQLiteImageJobRepository) GetByID(ctx context.Context, id string) (*models.ImageJob, error) {
	query := `SELECT ` + imageJobColumns + ` FROM image_jobs WHERE id = ?`
	return scanImageJob(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteImageJobRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.ImageJob, error) {
	query := `
		SELECT ` + imageJobColumns + `
		FROM image_jobs WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query image jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ImageJob
	for rows.Next() {
		job, err := scanImageJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update applies a partial update. The WHERE clause excludes terminal rows
// so a completed or failed job is never rewritten, regardless of caller
// ordering (late webhooks, concurrent timeout refreshes).
func (r *SQLiteImageJobRepository) Update(ctx context.Context, id string, upd ImageJobUpdate) error {
	sets := []string{"status = ?", "updated_at = ?"}
	args := []interface{}{upd.Status, time.Now().UTC().Format(time.RFC3339)}

	if upd.URLs != nil {
		sets = append(sets, "urls = ?")
		args = append(args, nullJSON(upd.URLs))
	}
	if upd.IPFSURLs != nil {
		sets = append(sets, "ipfs_urls = ?")
		args = append(args, nullJSON(upd.IPFSURLs))
	}
	if upd.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *upd.Error)
	}

	query := `UPDATE image_jobs SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? AND status NOT IN ('completed', 'failed')`
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update image job: %w", err)
	}
	return nil
}

func (r *SQLiteImageJobRepository) MarkStaleProcessingFailed(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339)
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		UPDATE image_jobs
		SET status = ?, error = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?
	`
	result, err := r.db.ExecContext(ctx, query,
		models.ImageJobStatusFailed,
		"job terminated: server restart or timeout",
		now,
		models.ImageJobStatusProcessing,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale jobs as failed: %w", err)
	}

	count, _ := result.RowsAffected()
	return count, nil
}

func scanImageJob(row *sql.Row) (*models.ImageJob, error) {
	var job models.ImageJob
	var urls, ipfsURLs, userID, callbackURL, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&job.ID, &job.Status, &job.Prompt, &job.Model, &job.Size,
		&urls, &ipfsURLs, &userID, &callbackURL, &errMsg,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan image job: %w", err)
	}

	return finishImageJob(&job, urls, ipfsURLs, userID, callbackURL, errMsg, createdAt, updatedAt)
}

func scanImageJobFromRows(rows *sql.Rows) (*models.ImageJob, error) {
	var job models.ImageJob
	var urls, ipfsURLs, userID, callbackURL, errMsg sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(
		&job.ID, &job.Status, &job.Prompt, &job.Model, &job.Size,
		&urls, &ipfsURLs, &userID, &callbackURL, &errMsg,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan image job: %w", err)
	}

	return finishImageJob(&job, urls, ipfsURLs, userID, callbackURL, errMsg, createdAt, updatedAt)
}

func finishImageJob(job *models.ImageJob, urls, ipfsURLs, userID, callbackURL, errMsg sql.NullString, createdAt, updatedAt string) (*models.ImageJob, error) {
	if urls.Valid {
		if err := json.Unmarshal([]byte(urls.String), &job.URLs); err != nil {
			return nil, fmt.Errorf("failed to decode urls: %w", err)
		}
	}
	if ipfsURLs.Valid {
		if err := json.Unmarshal([]byte(ipfsURLs.String), &job.IPFSURLs); err != nil {
			return nil, fmt.Errorf("failed to decode ipfs_urls: %w", err)
		}
	}
	job.UserID = userID.String
	job.CallbackURL = callbackURL.String
	job.Error = errMsg.String
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return job, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullJSON(v []string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	data, _ := json.Marshal(v)
	return sql.NullString{String: string(data), Valid: true}
}
