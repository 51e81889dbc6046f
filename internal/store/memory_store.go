package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matthewbaird/turbine/internal/errors"
)

// MemoryStore implements Store in process memory. History is lost on exit.
type MemoryStore struct {
	mu        sync.RWMutex
	runs      []Run
	artifacts map[string][]Artifact
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: make(map[string][]Artifact)}
}

func (s *MemoryStore) SaveRun(_ context.Context, run Run, artifacts []Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.artifacts[run.ID]; ok {
		return errors.Newf("run %s already saved", run.ID)
	}
	s.runs = append(s.runs, run)
	stored := make([]Artifact, len(artifacts))
	for i, a := range artifacts {
		a.Size = len(a.Content)
		stored[i] = a
	}
	s.artifacts[run.ID] = stored
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return Run{}, errors.Wrapf(errors.ErrNotFound, "run %s", id)
}

func (s *MemoryStore) ListRuns(_ context.Context, opts ListOptions) ([]Run, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor, hasCursor := opts.cursor()
	var total []Run
	for _, r := range s.runs {
		if opts.Project != "" && r.Project != opts.Project {
			continue
		}
		if opts.Status != "" && r.Status != opts.Status {
			continue
		}
		if opts.Since != nil && r.StartedAt.Before(*opts.Since) {
			continue
		}
		total = append(total, r)
	}

	slices.SortStableFunc(total, func(a, b Run) int { return b.StartedAt.Compare(a.StartedAt) })

	var matched []Run
	for _, r := range total {
		if hasCursor && !r.StartedAt.Before(cursor) {
			continue
		}
		matched = append(matched, r)
	}

	var next string
	if limit := opts.limit(); len(matched) > limit {
		matched = matched[:limit]
		next = encodeCursor(matched[len(matched)-1].StartedAt)
	}
	return matched, next, len(total), nil
}

func (s *MemoryStore) Artifacts(_ context.Context, runID string) ([]Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arts, ok := s.artifacts[runID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", runID)
	}
	out := make([]Artifact, len(arts))
	for i, a := range arts {
		a.Content = ""
		out[i] = a
	}
	return out, nil
}

func (s *MemoryStore) Artifact(_ context.Context, runID, path string) (Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.artifacts[runID] {
		if a.Path == path {
			return a, nil
		}
	}
	return Artifact{}, errors.Wrapf(errors.ErrNotFound, "artifact %s of run %s", path, runID)
}

func (s *MemoryStore) Close() error { return nil }
