package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/remote"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/syncer"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{DataDir: t.TempDir()},
	}
	roster := store.NewRoster(cfg.Storage.RosterPath())
	open := func(ctx context.Context) (remote.Store, error) {
		return nil, remote.ErrConfigMissing
	}
	sync := syncer.New(cfg.Storage.AttendanceDir(), store.NewPendingLog(cfg.Storage.PendingLogPath()), open)
	return NewServer(cfg, "127.0.0.1", 0, roster, sync), cfg
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestHandleStudents(t *testing.T) {
	s, cfg := newTestServer(t)
	roster := store.NewRoster(cfg.Storage.RosterPath())
	if err := roster.Append(store.Student{Enrollment: "42", Name: "Ada Lovelace"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/v1/students")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("expected count 1, got %v", body["count"])
	}
}

func TestHandleStudents_MissingRoster(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/students")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing roster, got %d", rec.Code)
	}
}

func TestHandleAttendance(t *testing.T) {
	s, cfg := newTestServer(t)
	records := []store.Record{{Enrollment: "42", Name: "Ada"}}
	path, err := store.WriteAttendance(cfg.Storage.AttendanceDir(), "Maths", "2026-08-30", "10-15-00", records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.WriteAttendance(cfg.Storage.AttendanceDir(), "Maths", "2026-08-29", "09-00-00", records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/v1/attendance")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	subjects := body["subjects"].(map[string]any)
	if subjects["Maths"] != float64(2) {
		t.Errorf("expected 2 sessions for Maths, got %v", subjects)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/attendance/Maths?date=2026-08-30")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("expected 1 file after date filter, got %v", body["count"])
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/attendance/Maths/"+filepath.Base(path))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("expected 1 record, got %v", body["count"])
	}
}

func TestHandleAttendanceFile_Traversal(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/attendance/Maths/..secrets.csv")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a traversal attempt, got %d", rec.Code)
	}
}

func TestHandleSyncPending(t *testing.T) {
	s, cfg := newTestServer(t)
	log := store.NewPendingLog(cfg.Storage.PendingLogPath())
	if err := log.Append("/data/a.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/v1/sync/pending")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Errorf("expected 1 pending entry, got %v", body["count"])
	}
}

func TestHandleSyncRun_NotConfigured(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/sync")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when no remote is configured, got %d", rec.Code)
	}
}
