package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"oaigate/internal/config"
	"oaigate/internal/database/migrations"
	"oaigate/internal/openai"
	"oaigate/internal/rendezvous"
	"oaigate/internal/repository"
	"oaigate/internal/service"
)

func testImageHandler(t *testing.T, replicateURL string) *ImageHandler {
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
		ReplicateAPIURL:  replicateURL,
		IPFSURL:          "http://ipfs.invalid",
		ImageWaitTimeout: 100 * time.Millisecond,
		StaleJobMaxAge:   time.Hour,
	}
	repos := repository.NewRepositories(db)
	svcs := service.NewServices(cfg, repos, rendezvous.New(), discardLogger())
	return NewImageHandler(svcs.Image, discardLogger())
}

func TestCreateImage_MissingPrompt(t *testing.T) {
	h := testImageHandler(t, "http://replicate.invalid")

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generations", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.CreateImage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateImage_TimeoutContinuation(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
	}))
	defer backend.Close()

	h := testImageHandler(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generations",
		strings.NewReader(`{"prompt":"a cat","callback_url":"https://client.example.com/cb"}`))
	rec := httptest.NewRecorder()
	h.CreateImage(rec, req)

	if rec.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d, want 408; body %s", rec.Code, rec.Body.String())
	}

	var errResp openai.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errResp.Error.Type != "timeout" {
		t.Errorf("error type = %q, want timeout", errResp.Error.Type)
	}
	if errResp.Error.TaskID == "" {
		t.Error("error task_id empty")
	}
}

func TestCreateImage_BackendDown(t *testing.T) {
	h := testImageHandler(t, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generations",
		strings.NewReader(`{"prompt":"a cat"}`))
	rec := httptest.NewRecorder()
	h.CreateImage(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
