package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mhoffmann/blackout/internal/findings"
	"github.com/mhoffmann/blackout/internal/jobs"
	"github.com/mhoffmann/blackout/internal/pipeline"
	"github.com/mhoffmann/blackout/internal/svcctx"
)

// handleProcess accepts a multipart upload and starts an anonymization
// job. The optional "preferences" field is a JSON object mapping category
// ids to booleans; omitted categories keep their server defaults.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if len(data) > maxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", maxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	log := svcctx.LoggerFrom(r.Context())
	defaults := s.DefaultPreferences()
	prefs := defaults
	if raw := r.FormValue("preferences"); raw != "" {
		var overrides map[string]bool
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			jsonError(w, "invalid preferences JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		prefs = findings.ParsePreferences(overrides, defaults, log)
	}

	job := s.jobStore(r.Context()).Create(filename)
	go s.runJob(s.orch(r.Context()), job, data, prefs)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"status":     jobs.StatusPending,
		"status_url": fmt.Sprintf("/api/status/%s", job.ID),
		"result_url": fmt.Sprintf("/api/result/%s", job.ID),
	})
}

// runJob drives a job to completion in the background. The request
// context ends with the upload response, so processing runs detached.
func (s *Server) runJob(orch *pipeline.Orchestrator, job *jobs.Job, data []byte, prefs findings.Preferences) {
	ctx := context.Background()
	job.Start(0)

	res, err := orch.Run(ctx, data, prefs, job.SetProgress)
	if err != nil {
		s.log.Error("job failed", "job_id", job.ID, "error", err)
		job.Fail("document could not be processed")
		return
	}
	job.Complete(res.Output, res.Redactions, res.FailedPages)
}

// jobStore prefers the request-scoped registry, falling back to the one
// the server was constructed with.
func (s *Server) jobStore(ctx context.Context) *jobs.Store {
	if store := svcctx.JobStoreFrom(ctx); store != nil {
		return store
	}
	return s.store
}

func (s *Server) orch(ctx context.Context) *pipeline.Orchestrator {
	if orch := svcctx.OrchestratorFrom(ctx); orch != nil {
		return orch
	}
	return s.orchestrator
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobStore(r.Context()).Get(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "unknown job", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	job := s.jobStore(r.Context()).Get(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "unknown job", http.StatusNotFound)
		return
	}

	snap := job.Snapshot()
	switch snap.Status {
	case jobs.StatusCompleted:
	case jobs.StatusFailed:
		jsonError(w, snap.Error, http.StatusUnprocessableEntity)
		return
	default:
		jsonError(w, "job not finished", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="anonymized-%s"`, snap.Filename))
	w.Write(job.Result())
}

// sanitizeFilename strips path components from an uploaded filename.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}
