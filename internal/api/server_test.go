package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/jobs"
	"github.com/mhoffmann/blackout/internal/locate"
	"github.com/mhoffmann/blackout/internal/ocr"
	"github.com/mhoffmann/blackout/internal/pipeline"
	"github.com/mhoffmann/blackout/internal/providers"
	"github.com/mhoffmann/blackout/internal/redact"
	"github.com/mhoffmann/blackout/internal/svcctx"
)

type stubRenderer struct{ img []byte }

func (s *stubRenderer) RenderPage(context.Context, string, int) ([]byte, error) { return s.img, nil }
func (s *stubRenderer) Zoom() float64                                           { return 2 }

type stubEngine struct{}

func (stubEngine) Name() string { return "stub" }
func (stubEngine) Recognize(context.Context, []byte, []string) (*ocr.Result, error) {
	return &ocr.Result{}, nil
}

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 140))
	for y := 0; y < 140; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testPDF(t *testing.T) []byte {
	t.Helper()
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "p.png")
	if err := os.WriteFile(pngPath, blankPNG(t), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "doc.pdf")
	if err := pdfapi.ImportImagesFile([]string{pngPath}, out, nil, nil); err != nil {
		t.Fatalf("build test pdf: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newTestServer(t *testing.T) (*Server, *jobs.Store) {
	t.Helper()
	renderer := &stubRenderer{img: blankPNG(t)}
	adapter := ocr.NewAdapter(renderer, stubEngine{}, nil)
	extractor := findings.NewExtractor(
		&providers.MockLLM{Responses: []string{`{"findings":[]}`}}, nil, nil,
		findings.ExtractorConfig{MaxAttempts: 1, InitialWait: time.Millisecond, MaxWait: time.Millisecond})
	redactor, err := redact.New(renderer, "0,0,0", nil)
	if err != nil {
		t.Fatal(err)
	}
	proc := pipeline.NewPageProcessor(adapter, extractor, locate.New(nil), redactor, nil, nil)
	orch := pipeline.NewOrchestrator(proc, nil, 1, nil)

	store := jobs.NewStore(time.Hour)
	return NewServer(store, orch, findings.DefaultPreferences(), nil), store
}

func multipartUpload(t *testing.T, field, filename string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	for k, v := range extra {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProcessRejectsNonPDF(t *testing.T) {
	srv, _ := newTestServer(t)
	body, ctype := multipartUpload(t, "file", "notes.txt", []byte("hi"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", ctype)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProcessRejectsBadPreferences(t *testing.T) {
	srv, _ := newTestServer(t)
	body, ctype := multipartUpload(t, "file", "doc.pdf", testPDF(t), map[string]string{
		"preferences": "{not json",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", ctype)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStatusUsesContextJobStore(t *testing.T) {
	srv, _ := newTestServer(t)
	alt := jobs.NewStore(time.Hour)
	job := alt.Create("ctx.pdf")

	req := httptest.NewRequest(http.MethodGet, "/api/status/"+job.ID, nil)
	req = req.WithContext(svcctx.WithServices(req.Context(), &svcctx.Services{JobStore: alt}))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestSetDefaultPreferences(t *testing.T) {
	srv, _ := newTestServer(t)

	prefs := findings.DefaultPreferences()
	prefs[findings.CategoryNames] = false
	srv.SetDefaultPreferences(prefs)

	got := srv.DefaultPreferences()
	if got[findings.CategoryNames] {
		t.Error("names category must be disabled after update")
	}
	got[findings.CategoryEmails] = false
	if !srv.DefaultPreferences()[findings.CategoryEmails] {
		t.Error("DefaultPreferences must return a copy")
	}
}

func TestResultBeforeCompletionConflicts(t *testing.T) {
	srv, store := newTestServer(t)
	job := store.Create("doc.pdf")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/result/"+job.ID, nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestProcessFlow(t *testing.T) {
	srv, store := newTestServer(t)
	body, ctype := multipartUpload(t, "file", "doc.pdf", testPDF(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", ctype)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	// Poll until the background job settles.
	deadline := time.Now().Add(30 * time.Second)
	for {
		snap := store.Get(accepted.JobID).Snapshot()
		if snap.Status == jobs.StatusCompleted || snap.Status == jobs.StatusFailed {
			if snap.Status != jobs.StatusCompleted {
				t.Fatalf("job failed: %s", snap.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %s", snap.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	res := httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/result/"+accepted.JobID, nil))
	if res.Code != http.StatusOK {
		t.Fatalf("result status = %d: %s", res.Code, res.Body.String())
	}
	if got := res.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("content type = %q", got)
	}
	if res.Body.Len() == 0 {
		t.Error("empty result document")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"doc.pdf", "doc.pdf"},
		{"../../etc/passwd.pdf", "passwd.pdf"},
		{`C:\files\scan.pdf`, "scan.pdf"},
		{"", "document.pdf"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
