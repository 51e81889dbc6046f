// Package compiler runs specifications through the artifact engine and
// records each run.
package compiler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/turbine/internal/emit"
	"github.com/matthewbaird/turbine/internal/event"
	"github.com/matthewbaird/turbine/internal/logger"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/store"
)

// Compiler turns specification documents into artifacts.
type Compiler struct {
	engine   *emit.Engine
	recorder event.Recorder
	bus      event.Publisher
	log      *zap.SugaredLogger
	now      func() time.Time
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithEngine replaces the default artifact engine.
func WithEngine(e *emit.Engine) Option { return func(c *Compiler) { c.engine = e } }

// WithRecorder persists every run.
func WithRecorder(r event.Recorder) Option { return func(c *Compiler) { c.recorder = r } }

// WithPublisher announces run progress. Completion events are the
// recorder's job; the compiler only publishes RunStarted and one
// ArtifactEmitted per artifact.
func WithPublisher(p event.Publisher) Option { return func(c *Compiler) { c.bus = p } }

func New(opts ...Option) *Compiler {
	c := &Compiler{
		engine: emit.NewEngine(),
		log:    logger.Named("compiler"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is the outcome of one compilation.
type Run struct {
	ID         string
	Spec       *spec.Specification
	Result     *emit.Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Err returns the first error of the run, or nil.
func (r *Run) Err() error {
	if len(r.Result.Errors) == 0 {
		return nil
	}
	return r.Result.Errors[0]
}

// Summary converts the run to its stored form.
func (r *Run) Summary() store.Run {
	sr := store.Run{
		ID:            r.ID,
		Project:       r.Spec.Project.Name,
		Version:       r.Spec.Project.Version,
		Status:        store.StatusSucceeded,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		ArtifactCount: len(r.Result.Artifacts),
		Gaps:          append([]string{}, r.Result.Gaps...),
		Errors:        []string{},
	}
	for _, err := range r.Result.Errors {
		sr.Errors = append(sr.Errors, err.Error())
	}
	if len(sr.Errors) > 0 {
		sr.Status = store.StatusFailed
	}
	return sr
}

// StoredArtifacts converts the run's artifacts to their stored form.
func (r *Run) StoredArtifacts() []store.Artifact {
	out := make([]store.Artifact, len(r.Result.Artifacts))
	for i, a := range r.Result.Artifacts {
		out[i] = store.Artifact{
			Path: a.Path, Rule: a.Rule, HasGaps: a.HasGaps,
			Size: len(a.Content), Content: a.Content,
		}
	}
	return out
}

// Validate loads a document and runs every check that precedes emission:
// schema validation, reference resolution and dependency ordering.
func (c *Compiler) Validate(data []byte, format spec.Format) (*spec.Specification, error) {
	s, err := spec.Load(data, format)
	if err != nil {
		return nil, err
	}
	if _, err := emit.Prepare(s); err != nil {
		return nil, err
	}
	return s, nil
}

// GenerateDocument loads a document and compiles it. Documents that fail
// to load are returned as errors and never recorded.
func (c *Compiler) GenerateDocument(ctx context.Context, data []byte, format spec.Format) (*Run, error) {
	s, err := spec.Load(data, format)
	if err != nil {
		return nil, err
	}
	return c.Generate(ctx, s)
}

// Generate compiles a loaded specification. Compilation failures are
// reported in the run's result; the error is non-nil only when the run
// could not be recorded.
func (c *Compiler) Generate(ctx context.Context, s *spec.Specification) (*Run, error) {
	run := &Run{ID: uuid.New().String(), Spec: s, StartedAt: c.now().UTC()}
	log := c.log.With(logger.FieldRunID, run.ID, logger.FieldProject, s.Project.Name)

	c.publish(ctx, event.NewRunStarted(run.ID, s.Project.Name, event.RunStartedPayload{
		Version: s.Project.Version,
		Rules:   c.engine.Rules(),
	}))

	run.Result = c.engine.Generate(ctx, s)
	run.FinishedAt = c.now().UTC()

	for _, a := range run.Result.Artifacts {
		c.publish(ctx, event.NewArtifactEmitted(run.ID, s.Project.Name, event.ArtifactPayload{
			Path: a.Path, Rule: a.Rule, HasGaps: a.HasGaps, Size: len(a.Content),
		}))
	}

	fields := []any{
		logger.FieldCount, len(run.Result.Artifacts),
		logger.FieldGaps, len(run.Result.Gaps),
		logger.FieldDuration, run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	}
	if run.Result.Success() {
		log.Infow("run completed", fields...)
	} else {
		log.Warnw("run failed", append(fields, logger.FieldErrors, len(run.Result.Errors), zap.Error(run.Err()))...)
	}

	if c.recorder != nil {
		if err := c.recorder.Record(ctx, run.Summary(), run.StoredArtifacts()); err != nil {
			log.Errorw("record run", zap.Error(err))
			return run, err
		}
	}
	return run, nil
}

func (c *Compiler) publish(ctx context.Context, evt event.DomainEvent) {
	if c.bus != nil {
		c.bus.Publish(ctx, evt)
	}
}
