package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/turbine/internal/emit"
	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/event"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/store"
)

const itemDoc = `
project:
  name: Inventory
  description: Tracks items
entities:
  - name: Item
    operations: [create, list]
    fields:
      - name: title
        type: string
        required: true
`

const cycleDoc = `
project: {name: x, description: x}
entities:
  - name: A
    fields:
      - {name: b, type: relation, relation: {type: belongsTo, target: B}}
  - name: B
    fields:
      - {name: a, type: relation, relation: {type: belongsTo, target: A}}
`

type capture struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (c *capture) Publish(_ context.Context, evt event.DomainEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *capture) count(typ string) int {
	n := 0
	for _, e := range c.events {
		if e.EventType == typ {
			n++
		}
	}
	return n
}

func TestValidate(t *testing.T) {
	c := New()

	s, err := c.Validate([]byte(itemDoc), spec.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "Inventory", s.Project.Name)

	_, err = c.Validate([]byte(cycleDoc), spec.FormatYAML)
	assert.True(t, errors.Is(err, errors.ErrCircularDependency), "got %v", err)

	_, err = c.Validate([]byte(`entities: []`), spec.FormatYAML)
	assert.True(t, errors.Is(err, errors.ErrSchemaValidation), "got %v", err)
}

func TestGenerate_RecordsAndPublishes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	bus := &capture{}
	rec := event.NewStoreRecorder(s)
	rec.SetPublisher(bus)
	c := New(WithRecorder(rec), WithPublisher(bus))

	run, err := c.GenerateDocument(ctx, []byte(itemDoc), spec.FormatYAML)
	require.NoError(t, err)
	require.NoError(t, run.Err())
	assert.NotEmpty(t, run.ID)

	saved, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusSucceeded, saved.Status)
	assert.Equal(t, "Inventory", saved.Project)
	assert.Equal(t, len(run.Result.Artifacts), saved.ArtifactCount)
	assert.Equal(t, run.Result.Gaps, saved.Gaps)

	arts, err := s.Artifacts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, arts, len(run.Result.Artifacts))
	assert.Equal(t, run.Result.Artifacts[0].Path, arts[0].Path)

	manifest, err := s.Artifact(ctx, run.ID, "package.json")
	require.NoError(t, err)
	want, _ := run.Result.Artifact("package.json")
	assert.Equal(t, want.Content, manifest.Content)

	assert.Equal(t, 1, bus.count(event.TypeRunStarted))
	assert.Equal(t, len(run.Result.Artifacts), bus.count(event.TypeArtifactEmitted))
	assert.Equal(t, len(run.Result.Gaps), bus.count(event.TypeGapFound))
	assert.Equal(t, 1, bus.count(event.TypeRunCompleted))
}

func TestGenerate_FailedRunIsRecorded(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	c := New(WithRecorder(event.NewStoreRecorder(s)))

	run, err := c.GenerateDocument(ctx, []byte(cycleDoc), spec.FormatYAML)
	require.NoError(t, err)
	assert.True(t, errors.Is(run.Err(), errors.ErrCircularDependency))
	assert.Empty(t, run.Result.Artifacts)

	saved, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, saved.Status)
	require.Len(t, saved.Errors, 1)
	assert.Contains(t, saved.Errors[0], "circular dependency")
}

func TestGenerateDocument_LoadErrorNotRecorded(t *testing.T) {
	s := store.NewMemoryStore()
	c := New(WithRecorder(event.NewStoreRecorder(s)))

	_, err := c.GenerateDocument(context.Background(), []byte("project: ["), spec.FormatYAML)
	require.Error(t, err)

	_, _, total, err := s.ListRuns(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGenerate_Deterministic(t *testing.T) {
	c := New(WithEngine(emit.NewEngine(emit.WithParallelism(8))))
	a, err := c.GenerateDocument(context.Background(), []byte(itemDoc), spec.FormatYAML)
	require.NoError(t, err)
	b, err := c.GenerateDocument(context.Background(), []byte(itemDoc), spec.FormatYAML)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Result.Artifacts, b.Result.Artifacts)
}

func TestWriteTree(t *testing.T) {
	dir := t.TempDir()
	arts := []emit.Artifact{
		{Path: "package.json", Content: "{}\n"},
		{Path: "src/routes/items.ts", Content: "export {}\n"},
	}

	st, err := WriteTree(dir, arts)
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Written: 2}, st)

	got, err := os.ReadFile(filepath.Join(dir, "src", "routes", "items.ts"))
	require.NoError(t, err)
	assert.Equal(t, "export {}\n", string(got))

	arts[0].Content = "{\"name\":\"x\"}\n"
	st, err = WriteTree(dir, arts)
	require.NoError(t, err)
	assert.Equal(t, WriteStats{Written: 1, Unchanged: 1}, st)

	_, err = WriteTree(dir, []emit.Artifact{{Path: "../outside.txt", Content: "x"}})
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "outside.txt"))
	assert.True(t, os.IsNotExist(err))
}
