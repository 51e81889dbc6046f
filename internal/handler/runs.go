package handler

import (
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/store"
)

// RunsHandler serves the run history.
type RunsHandler struct {
	store store.Store
}

func NewRunsHandler(s store.Store) *RunsHandler {
	return &RunsHandler{store: s}
}

// ListRunsResponse is a page of runs.
type ListRunsResponse struct {
	Runs       []store.Run `json:"runs"`
	NextCursor string      `json:"nextCursor,omitempty"`
	Total      int         `json:"total"`
}

// ListRuns handles GET /v1/runs.
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	runs, next, total, err := h.store.ListRuns(r.Context(), opts)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, ListRunsResponse{Runs: runs, NextCursor: next, Total: total})
}

// GetRun handles GET /v1/runs/{id}.
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListArtifacts handles GET /v1/runs/{id}/artifacts.
func (h *RunsHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	arts, err := h.store.Artifacts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": arts})
}

// GetArtifact handles GET /v1/runs/{id}/artifact?path=... and answers the
// raw file content.
func (h *RunsHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		errorToHTTP(w, errors.Wrap(errors.ErrInvalidRequest, "path is required"))
		return
	}
	a, err := h.store.Artifact(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	ct := mime.TypeByExtension(path.Ext(a.Path))
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	if a.HasGaps {
		w.Header().Set("X-Turbine-Gaps", "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(a.Content))
}
