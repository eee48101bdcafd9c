package service

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"oaigate/internal/config"
	"oaigate/internal/database/migrations"
	"oaigate/internal/rendezvous"
	"oaigate/internal/repository"
)

type testEnv struct {
	cfg      *config.Config
	repos    *repository.Repositories
	registry *rendezvous.Registry
	svc      *Services
}

// newTestEnv wires services against an in-memory database. Backend URLs
// default to unreachable hosts; tests that exercise a backend point the
// config at an httptest server first via mutate.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := migrations.Run(db, logger); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	cfg := &config.Config{
		PublicURL:        "https://gw.example.com",
		ReplicateAPIURL:  "http://replicate.invalid",
		IPFSURL:          "http://ipfs.invalid",
		ImageWaitTimeout: 200 * time.Millisecond,
		StaleJobMaxAge:   time.Hour,
	}
	if mutate != nil {
		mutate(cfg)
	}

	repos := repository.NewRepositories(db)
	registry := rendezvous.New()
	svc := NewServices(cfg, repos, registry, logger)

	return &testEnv{cfg: cfg, repos: repos, registry: registry, svc: svc}
}
