// Package store keeps the history of compile runs and the artifacts each
// run produced. Runs are immutable once saved.
package store

import (
	"context"
	"time"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run summarizes one compilation.
type Run struct {
	ID            string    `json:"id"`
	Project       string    `json:"project"`
	Version       string    `json:"version"`
	Status        Status    `json:"status"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	ArtifactCount int       `json:"artifactCount"`
	Gaps          []string  `json:"gaps"`
	Errors        []string  `json:"errors"`
}

// Duration is the wall time the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Artifact is one stored file of a run. Content is omitted by listings.
type Artifact struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	HasGaps bool   `json:"hasGaps"`
	Size    int    `json:"size"`
	Content string `json:"content,omitempty"`
}

// Store is the run history interface.
type Store interface {
	// SaveRun writes a run and its artifacts atomically.
	SaveRun(ctx context.Context, run Run, artifacts []Artifact) error

	// GetRun returns one run, or an error matching errors.ErrNotFound.
	GetRun(ctx context.Context, id string) (Run, error)

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, opts ListOptions) (runs []Run, nextCursor string, totalCount int, err error)

	// Artifacts lists a run's artifacts in emission order, without content.
	Artifacts(ctx context.Context, runID string) ([]Artifact, error)

	// Artifact returns one artifact with its content.
	Artifact(ctx context.Context, runID, path string) (Artifact, error)

	Close() error
}
