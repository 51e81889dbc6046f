package handler

import (
	"net/http"
	"strconv"

	"github.com/matthewbaird/turbine/internal/compiler"
	"github.com/matthewbaird/turbine/internal/store"
)

// CompileHandler serves validation and generation requests.
type CompileHandler struct {
	compiler *compiler.Compiler
}

func NewCompileHandler(c *compiler.Compiler) *CompileHandler {
	return &CompileHandler{compiler: c}
}

// ValidateResponse reports a document that passed every pre-emission check.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Project  string   `json:"project"`
	Version  string   `json:"version"`
	Entities []string `json:"entities"`
}

// GenerateResponse is the body of a generation request.
type GenerateResponse struct {
	Run       store.Run        `json:"run"`
	Artifacts []store.Artifact `json:"artifacts"`
}

// Validate handles POST /v1/validate.
func (h *CompileHandler) Validate(w http.ResponseWriter, r *http.Request) {
	data, format, err := readDocument(w, r)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	s, err := h.compiler.Validate(data, format)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	names := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		names[i] = e.Name
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:    true,
		Project:  s.Project.Name,
		Version:  s.Project.Version,
		Entities: names,
	})
}

// Generate handles POST /v1/generate. Artifact content is included only
// when the "content" query parameter is true. A run that failed to compile
// answers 422 with the run ID, so its record can still be fetched.
func (h *CompileHandler) Generate(w http.ResponseWriter, r *http.Request) {
	data, format, err := readDocument(w, r)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	run, err := h.compiler.GenerateDocument(r.Context(), data, format)
	if err != nil && run == nil {
		errorToHTTP(w, err)
		return
	}
	if cerr := run.Err(); cerr != nil {
		status, body := Classify(cerr)
		body.RunID = run.ID
		writeJSON(w, status, body)
		return
	}
	if err != nil {
		errorToHTTP(w, err)
		return
	}

	withContent, _ := strconv.ParseBool(r.URL.Query().Get("content"))
	arts := run.StoredArtifacts()
	if !withContent {
		for i := range arts {
			arts[i].Content = ""
		}
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Run: run.Summary(), Artifacts: arts})
}
