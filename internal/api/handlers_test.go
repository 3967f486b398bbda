package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/survi-edge/clipscan/internal/database"
	"github.com/survi-edge/clipscan/internal/detect"
	"github.com/survi-edge/clipscan/internal/pipeline"
	"github.com/survi-edge/clipscan/internal/report"
	"github.com/survi-edge/clipscan/internal/storage"
)

type mockRunner struct {
	lastOpts pipeline.Options
	rep      *report.Report
}

func (m *mockRunner) Run(opts pipeline.Options) *report.Report {
	m.lastOpts = opts
	if m.rep != nil {
		return m.rep
	}
	return report.NewOK(opts.EventID, opts.Frames, opts.Threshold,
		detect.Summary{"people": 0, "cars": 0}, nil, 1)
}

func setupApp(t *testing.T, runner Runner) *App {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create clip storage: %v", err)
	}

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &App{
		Pipeline:         runner,
		Store:            store,
		Runs:             database.NewRunRepository(db),
		MaxUploadSize:    1 << 20,
		DefaultFrames:    5,
		DefaultThreshold: 0.5,
	}
}

func multipartClip(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("clip", "clip.mp4")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	fw.Write([]byte("fake mp4 bytes"))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestPing(t *testing.T) {
	router := NewRouter(setupApp(t, &mockRunner{}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("Unexpected ping response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeHandler(t *testing.T) {
	runner := &mockRunner{}
	app := setupApp(t, runner)
	router := NewRouter(app)

	body, contentType := multipartClip(t, map[string]string{
		"event_id":  "evt-api-1",
		"frames":    "3",
		"threshold": "0.4",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if runner.lastOpts.EventID != "evt-api-1" || runner.lastOpts.Frames != 3 || runner.lastOpts.Threshold != 0.4 {
		t.Errorf("Pipeline received wrong options: %+v", runner.lastOpts)
	}
	if runner.lastOpts.VideoPath == "" {
		t.Error("Pipeline was not given a stored clip path")
	}

	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Response is not JSON: %v", err)
	}
	if got["event_id"] != "evt-api-1" || got["status"] != "ok" {
		t.Errorf("Unexpected report: %v", got)
	}

	// The run was recorded.
	listReq := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)

	var runs []map[string]interface{}
	if err := json.Unmarshal(listRec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("Run list is not JSON: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 recorded run, got %d", len(runs))
	}
}

func TestAnalyzeHandlerDefaultsAndGeneratedEventID(t *testing.T) {
	runner := &mockRunner{}
	router := NewRouter(setupApp(t, runner))

	body, contentType := multipartClip(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if runner.lastOpts.EventID == "" {
		t.Error("Expected generated event ID")
	}
	if runner.lastOpts.Frames != 5 || runner.lastOpts.Threshold != 0.5 {
		t.Errorf("Defaults not applied: %+v", runner.lastOpts)
	}
}

func TestAnalyzeHandlerValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"zero frames", map[string]string{"frames": "0"}},
		{"non-numeric frames", map[string]string{"frames": "abc"}},
		{"threshold above one", map[string]string{"threshold": "1.5"}},
		{"negative threshold", map[string]string{"threshold": "-0.1"}},
	}

	router := NewRouter(setupApp(t, &mockRunner{}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartClip(t, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAnalyzeHandlerMissingClip(t *testing.T) {
	router := NewRouter(setupApp(t, &mockRunner{}))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("event_id", "evt")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing clip, got %d", rec.Code)
	}
}

func TestAnalyzeHandlerPipelineErrorStillReports(t *testing.T) {
	runner := &mockRunner{rep: report.NewError("evt-fail", errors.New("failed to open mp4"))}
	router := NewRouter(setupApp(t, runner))

	body, contentType := multipartClip(t, map[string]string{"event_id": "evt-fail"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Pipeline errors are reported in the artifact, expected 200, got %d", rec.Code)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Response is not JSON: %v", err)
	}
	if got["status"] != "error" || got["error"] == "" {
		t.Errorf("Expected error report, got %v", got)
	}
}

func TestRunHandlerNotFound(t *testing.T) {
	router := NewRouter(setupApp(t, &mockRunner{}))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
