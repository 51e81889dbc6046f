package event

import (
	"context"

	"github.com/matthewbaird/turbine/internal/store"
)

// Recorder persists a finished run.
type Recorder interface {
	Record(ctx context.Context, run store.Run, artifacts []store.Artifact) error
}

// Publisher sends events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// StoreRecorder implements Recorder on a store.Store. If a Publisher is set,
// the run's outcome is published after the store write succeeds: one
// GapFound per gap artifact, then RunCompleted or RunFailed.
type StoreRecorder struct {
	store store.Store
	bus   Publisher
}

func NewStoreRecorder(s store.Store) *StoreRecorder {
	return &StoreRecorder{store: s}
}

// SetPublisher attaches an event bus.
func (r *StoreRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

func (r *StoreRecorder) Record(ctx context.Context, run store.Run, artifacts []store.Artifact) error {
	if err := r.store.SaveRun(ctx, run, artifacts); err != nil {
		return err
	}
	if r.bus == nil {
		return nil
	}

	gaps := 0
	for _, a := range artifacts {
		if !a.HasGaps {
			continue
		}
		gaps++
		r.bus.Publish(ctx, NewGapFound(run.ID, run.Project, ArtifactPayload{
			Path: a.Path, Rule: a.Rule, HasGaps: true, Size: len(a.Content),
		}))
	}
	p := RunFinishedPayload{
		Artifacts:  len(artifacts),
		Gaps:       gaps,
		Errors:     run.Errors,
		DurationMS: run.Duration().Milliseconds(),
	}
	if run.Status == store.StatusFailed {
		r.bus.Publish(ctx, NewRunFailed(run.ID, run.Project, p))
	} else {
		r.bus.Publish(ctx, NewRunCompleted(run.ID, run.Project, p))
	}
	return nil
}
