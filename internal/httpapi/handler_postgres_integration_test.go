package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"biosync/internal/db"
	"biosync/internal/syncstatus"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if os.Getenv("BIOSYNC_INTEGRATION") != "1" {
		t.Skip("BIOSYNC_INTEGRATION not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("biosync"),
		postgres.WithUsername("biosync"),
		postgres.WithPassword("biosync"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	if err := db.Migrate(dsn, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dsn
}

func TestPostgres_TriggerAndStatus(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	pool, err := db.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer pool.Close()

	srv := httptest.NewServer(NewHandler(zerolog.New(io.Discard), pool, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/v1/devices", "application/json", strings.NewReader(`{"device_id":"D1","ip_address":"10.0.0.5"}`))
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/v1/devices", "application/json", strings.NewReader(`{"device_id":"D1"}`))
	if err != nil {
		t.Fatalf("create duplicate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/sync/runs/latest")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before any run, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/v1/sync/trigger", "application/json", nil)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	var ack syncstatus.Acknowledgment
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted || ack.Status != "accepted" || ack.RunID == "" {
		t.Fatalf("unexpected trigger response %d %#v", resp.StatusCode, ack)
	}

	resp, err = http.Get(srv.URL + "/api/v1/sync/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var snap syncstatus.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	resp.Body.Close()
	if len(snap) != 1 || snap[0].DeviceID != "D1" || snap[0].IPAddress != "10.0.0.5" || snap[0].LastSync != nil {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}
