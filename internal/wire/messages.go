// Package wire defines the WebSocket protocol of the compile service.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/turbine/internal/spec"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "validate", "generate", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// DocumentData is the payload for "validate" and "generate" messages.
type DocumentData struct {
	Format   spec.Format `json:"format,omitempty"` // default yaml
	Document string      `json:"document"`
	Content  bool        `json:"content,omitempty"` // include artifact content
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "hello", "valid", "run", "artifacts", "done", "error", "event", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// HelloData is sent once per connection.
type HelloData struct {
	Rules []string `json:"rules"`
}

// ValidData reports a document that passed validation.
type ValidData struct {
	Project  string   `json:"project"`
	Entities []string `json:"entities"`
}

// RunData announces a started run.
type RunData struct {
	RunID string `json:"runId"`
}

// ArtifactData describes one artifact.
type ArtifactData struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	HasGaps bool   `json:"hasGaps"`
	Size    int    `json:"size"`
	Content string `json:"content,omitempty"`
}

// ArtifactsData carries a batch of artifacts.
type ArtifactsData struct {
	Artifacts []ArtifactData `json:"artifacts"`
}

// DoneData signals completion of a run.
type DoneData struct {
	RunID     string   `json:"runId"`
	Artifacts int      `json:"artifacts"`
	Gaps      []string `json:"gaps"`
	Elapsed   string   `json:"elapsed"`
}

// ErrorData carries an error and, for compile errors, its diagnostics.
type ErrorData struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	RunID   string       `json:"runId,omitempty"`
	Issues  []spec.Issue `json:"issues,omitempty"`
	Cycle   []string     `json:"cycle,omitempty"`
}
