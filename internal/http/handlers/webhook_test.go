package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	_ "github.com/tursodatabase/go-libsql"

	"oaigate/internal/config"
	"oaigate/internal/database/migrations"
	"oaigate/internal/models"
	"oaigate/internal/rendezvous"
	"oaigate/internal/repository"
	"oaigate/internal/service"
)

func testWebhookHandler(t *testing.T) (*WebhookHandler, *repository.Repositories) {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := migrations.Run(db, discardLogger()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	cfg := &config.Config{
		PublicURL:        "https://gw.example.com",
		ReplicateAPIURL:  "http://replicate.invalid",
		IPFSURL:          "http://ipfs.invalid",
		ImageWaitTimeout: 100 * time.Millisecond,
		StaleJobMaxAge:   time.Hour,
	}
	repos := repository.NewRepositories(db)
	svcs := service.NewServices(cfg, repos, rendezvous.New(), discardLogger())

	return NewWebhookHandler(svcs.Image, discardLogger()), repos
}

func postWebhook(h *WebhookHandler, id, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Post("/v1/webhook/replicate/{id}", h.ReplicateWebhook)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhook/replicate/"+id, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReplicateWebhook_InvalidID(t *testing.T) {
	h, _ := testWebhookHandler(t)

	rec := postWebhook(h, "not-a-ulid", `{"status":"succeeded","output":["u"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReplicateWebhook_MalformedBodyStill200(t *testing.T) {
	h, _ := testWebhookHandler(t)

	rec := postWebhook(h, ulid.Make().String(), `{not json`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 once id parses", rec.Code)
	}
}

func TestReplicateWebhook_FailedStatusUpdatesJob(t *testing.T) {
	h, repos := testWebhookHandler(t)

	id := ulid.Make().String()
	now := time.Now()
	job := &models.ImageJob{
		ID:        id,
		Status:    models.ImageJobStatusProcessing,
		Prompt:    "p",
		Model:     "m",
		Size:      "1024x1024",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repos.ImageJob.Create(context.Background(), job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rec := postWebhook(h, id, `{"id":"pred-1","status":"failed","output":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got, _ := repos.ImageJob.GetByID(context.Background(), id)
	if got.Status != models.ImageJobStatusFailed {
		t.Errorf("job status = %q, want failed", got.Status)
	}
	if !strings.Contains(got.Error, "backend job failed with status: failed") {
		t.Errorf("job error = %q", got.Error)
	}
}

func TestReplicateWebhook_UnknownJobStill200(t *testing.T) {
	h, _ := testWebhookHandler(t)

	rec := postWebhook(h, ulid.Make().String(), `{"status":"failed"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
