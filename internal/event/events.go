// Package event defines the events a compile run raises.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeRunStarted      = "run_started"
	TypeArtifactEmitted = "artifact_emitted"
	TypeGapFound        = "gap_found"
	TypeRunCompleted    = "run_completed"
	TypeRunFailed       = "run_failed"
)

// DomainEvent carries the canonical shape of every event.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	RunID      string          `json:"runId"`
	Project    string          `json:"project"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func newEvent(typ, runID, project, summary string, payload any) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  typ,
		OccurredAt: time.Now().UTC(),
		RunID:      runID,
		Project:    project,
		Summary:    summary,
		Payload:    mustJSON(payload),
	}
}

// RunStartedPayload carries event-specific data for RunStarted.
type RunStartedPayload struct {
	Version string   `json:"version"`
	Rules   []string `json:"rules"`
}

func NewRunStarted(runID, project string, p RunStartedPayload) DomainEvent {
	return newEvent(TypeRunStarted, runID, project,
		fmt.Sprintf("Compiling %s %s", project, p.Version), p)
}

// ArtifactPayload carries event-specific data for ArtifactEmitted and GapFound.
type ArtifactPayload struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	HasGaps bool   `json:"hasGaps"`
	Size    int    `json:"size"`
}

func NewArtifactEmitted(runID, project string, p ArtifactPayload) DomainEvent {
	return newEvent(TypeArtifactEmitted, runID, project,
		fmt.Sprintf("Emitted %s", p.Path), p)
}

func NewGapFound(runID, project string, p ArtifactPayload) DomainEvent {
	return newEvent(TypeGapFound, runID, project,
		fmt.Sprintf("%s needs completion", p.Path), p)
}

// RunFinishedPayload carries event-specific data for RunCompleted and RunFailed.
type RunFinishedPayload struct {
	Artifacts  int      `json:"artifacts"`
	Gaps       int      `json:"gaps"`
	Errors     []string `json:"errors,omitempty"`
	DurationMS int64    `json:"durationMs"`
}

func NewRunCompleted(runID, project string, p RunFinishedPayload) DomainEvent {
	return newEvent(TypeRunCompleted, runID, project,
		fmt.Sprintf("Generated %d artifacts, %d with gaps", p.Artifacts, p.Gaps), p)
}

func NewRunFailed(runID, project string, p RunFinishedPayload) DomainEvent {
	summary := "Compilation failed"
	if len(p.Errors) > 0 {
		summary = fmt.Sprintf("Compilation failed: %s", p.Errors[0])
	}
	return newEvent(TypeRunFailed, runID, project, summary, p)
}
