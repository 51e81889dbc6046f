// Package emit renders a woven specification into scaffold artifacts.
//
// Rules run in a fixed order and each produces zero or more artifacts.
// Rendering happens after weaving has completed, so rules share no mutable
// state and run concurrently; their output is collected into per-rule
// slots and concatenated in rule order, which keeps results byte-identical
// across runs.
package emit

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/resolve"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

// Gap markers. Content containing any of them needs completion by a human
// or an LLM pass.
var gapMarkers = []string{"// TODO:", "/* GAP:", "# TODO:", "<!-- GAP:"}

// HasGap reports whether content embeds an unresolved-completion marker.
func HasGap(content string) bool {
	for _, m := range gapMarkers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

// Artifact is one generated file.
type Artifact struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Rule    string `json:"rule"`
	HasGaps bool   `json:"hasGaps"`
}

// Result collects the artifacts, gap paths and errors of a run.
type Result struct {
	Artifacts []Artifact
	Gaps      []string
	Errors    []error
}

// Success reports whether the run collected no errors.
func (r *Result) Success() bool { return len(r.Errors) == 0 }

// Artifact looks up a generated file by path.
func (r *Result) Artifact(path string) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Path == path {
			return a, true
		}
	}
	return Artifact{}, false
}

// EmissionError reports a rule that met a combination it has no output
// for. It matches errors.ErrEmission.
type EmissionError struct {
	Rule    string
	Path    string
	Message string
}

func (e *EmissionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Rule, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Rule, e.Path, e.Message)
}

func (e *EmissionError) Is(target error) bool { return target == errors.ErrEmission }

// Context is the read-only input every rule renders from.
type Context struct {
	Spec  *spec.Specification
	Model *weave.Model
	Order []*weave.Entity // dependency order, for storage sections
}

// output accumulates what one rule produced.
type output struct {
	rule      string
	artifacts []Artifact
	errs      []error
}

func (o *output) file(path, content string) {
	o.artifacts = append(o.artifacts, Artifact{
		Path:    path,
		Content: content,
		Rule:    o.rule,
		HasGaps: HasGap(content),
	})
}

func (o *output) fail(path, format string, args ...any) {
	o.errs = append(o.errs, &EmissionError{Rule: o.rule, Path: path, Message: fmt.Sprintf(format, args...)})
}

type rule struct {
	name string
	emit func(c *Context, out *output)
}

// Engine runs the artifact rules.
type Engine struct {
	rules    []rule
	parallel int
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelism bounds concurrent rule rendering. n < 1 renders serially.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.parallel = n
	}
}

// NewEngine returns an engine with the standard rule set.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: defaultRules(), parallel: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules lists the rule names in run order.
func (e *Engine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.name
	}
	return names
}

// Generate runs the engine with default options.
func Generate(ctx context.Context, s *spec.Specification) *Result {
	return NewEngine().Generate(ctx, s)
}

// Prepare checks references, weaves the model and orders it. Any error
// here aborts a run before a single artifact is produced.
func Prepare(s *spec.Specification) (*Context, error) {
	if err := resolve.CheckReferences(s); err != nil {
		return nil, err
	}
	m := weave.Weave(s)
	order, err := m.Ordered()
	if err != nil {
		return nil, err
	}
	return &Context{Spec: s, Model: m, Order: order}, nil
}

// Generate compiles a validated specification into artifacts.
func (e *Engine) Generate(ctx context.Context, s *spec.Specification) *Result {
	c, err := Prepare(s)
	if err != nil {
		return &Result{Errors: []error{err}}
	}
	return e.Render(ctx, c)
}

// Render runs every rule over a prepared context.
func (e *Engine) Render(ctx context.Context, c *Context) *Result {
	slots := make([]*output, len(e.rules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for i, r := range e.rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := &output{rule: r.name}
			r.emit(c, out)
			slots[i] = out
			return nil
		})
	}

	res := &Result{}
	if err := g.Wait(); err != nil {
		res.Errors = append(res.Errors, errors.Wrap(err, "render"))
		return res
	}

	seen := make(map[string]string)
	for _, out := range slots {
		for _, a := range out.artifacts {
			if prev, dup := seen[a.Path]; dup {
				res.Errors = append(res.Errors, &EmissionError{
					Rule: a.Rule, Path: a.Path,
					Message: "path already produced by rule " + prev,
				})
				continue
			}
			seen[a.Path] = a.Rule
			res.Artifacts = append(res.Artifacts, a)
			if a.HasGaps {
				res.Gaps = append(res.Gaps, a.Path)
			}
		}
		res.Errors = append(res.Errors, out.errs...)
	}
	return res
}
