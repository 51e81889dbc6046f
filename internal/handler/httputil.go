// Package handler implements the HTTP API of the compile service.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/logger"
	"github.com/matthewbaird/turbine/internal/resolve"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/store"
)

// MaxDocumentBytes bounds request bodies.
const MaxDocumentBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string       `json:"error"`
	Code   string       `json:"code"`
	RunID  string       `json:"runId,omitempty"`
	Issues []spec.Issue `json:"issues,omitempty"`
	Cycle  []string     `json:"cycle,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Named("http").Warnw("writeJSON encode error", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: message, Code: code})
}

// Classify maps err to an HTTP status and response body.
func Classify(err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error()}
	var (
		verr  *spec.ValidationError
		cycle *resolve.CycleError
	)
	switch {
	case errors.As(err, &verr):
		body.Code = "SCHEMA_VALIDATION"
		body.Issues = verr.Issues
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &cycle):
		body.Code = "CIRCULAR_DEPENDENCY"
		body.Cycle = cycle.Cycle
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, errors.ErrReference):
		body.Code = "REFERENCE_ERROR"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, errors.ErrEmission):
		body.Code = "EMISSION_ERROR"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, errors.ErrNotFound):
		body.Code = "NOT_FOUND"
		return http.StatusNotFound, body
	case errors.Is(err, errors.ErrInvalidRequest):
		body.Code = "INVALID_REQUEST"
		return http.StatusBadRequest, body
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		body.Code = "CANCELED"
		return http.StatusServiceUnavailable, body
	}
	return http.StatusInternalServerError, ErrorBody{Error: "internal server error", Code: "INTERNAL_ERROR"}
}

// errorToHTTP maps compiler and store errors to HTTP responses.
func errorToHTTP(w http.ResponseWriter, err error) {
	status, body := Classify(err)
	if status == http.StatusInternalServerError {
		logger.Named("http").Errorw("internal error", zap.Error(err))
	}
	writeJSON(w, status, body)
}

var formatsByMediaType = map[string]spec.Format{
	"application/json":   spec.FormatJSON,
	"application/yaml":   spec.FormatYAML,
	"application/x-yaml": spec.FormatYAML,
	"text/yaml":          spec.FormatYAML,
	"application/toml":   spec.FormatTOML,
	"text/x-cue":         spec.FormatCUE,
}

// readDocument reads a specification document from the request body. The
// format comes from the "format" query parameter, then the Content-Type,
// and defaults to YAML.
func readDocument(w http.ResponseWriter, r *http.Request) ([]byte, spec.Format, error) {
	format := spec.FormatYAML
	if f := r.URL.Query().Get("format"); f != "" {
		format = spec.Format(f)
	} else if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		if f, ok := formatsByMediaType[mt]; ok {
			format = f
		}
	}
	switch format {
	case spec.FormatYAML, spec.FormatJSON, spec.FormatTOML, spec.FormatCUE:
	default:
		return nil, "", errors.Wrapf(errors.ErrInvalidRequest, "unsupported format %q", format)
	}

	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentBytes))
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrInvalidRequest, err.Error())
	}
	if len(data) == 0 {
		return nil, "", errors.Wrap(errors.ErrInvalidRequest, "empty document")
	}
	return data, format, nil
}

// parseListOptions extracts run filters and pagination from query params.
func parseListOptions(r *http.Request) (store.ListOptions, error) {
	q := r.URL.Query()
	opts := store.ListOptions{
		Project: q.Get("project"),
		Status:  store.Status(q.Get("status")),
		Cursor:  q.Get("cursor"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, errors.Wrapf(errors.ErrInvalidRequest, "invalid limit %q", v)
		}
		opts.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.Wrapf(errors.ErrInvalidRequest, "invalid since %q", v)
		}
		opts.Since = &t
	}
	switch opts.Status {
	case "", store.StatusSucceeded, store.StatusFailed:
	default:
		return opts, errors.Wrapf(errors.ErrInvalidRequest, "invalid status %q", opts.Status)
	}
	return opts, nil
}
