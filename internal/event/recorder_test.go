package event

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/turbine/internal/store"
)

type capture struct {
	mu     sync.Mutex
	events []DomainEvent
}

func (c *capture) Publish(_ context.Context, evt DomainEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *capture) types() []string {
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.EventType
	}
	return out
}

func TestStoreRecorder_PublishesAfterWrite(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	bus := &capture{}
	r := NewStoreRecorder(s)
	r.SetPublisher(bus)

	start := time.Now()
	run := store.Run{
		ID: "run-1", Project: "blog", Status: store.StatusSucceeded,
		StartedAt: start, FinishedAt: start.Add(40 * time.Millisecond),
	}
	arts := []store.Artifact{
		{Path: "package.json", Rule: "manifest", Content: "{}"},
		{Path: "src/hooks/post.ts", Rule: "hooks", HasGaps: true, Content: "// TODO: x"},
	}
	require.NoError(t, r.Record(ctx, run, arts))

	_, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{TypeGapFound, TypeRunCompleted}, bus.types())

	var p RunFinishedPayload
	require.NoError(t, json.Unmarshal(bus.events[1].Payload, &p))
	assert.Equal(t, 2, p.Artifacts)
	assert.Equal(t, 1, p.Gaps)
	assert.Equal(t, int64(40), p.DurationMS)
	assert.Equal(t, "run-1", bus.events[1].RunID)
}

func TestStoreRecorder_FailedRun(t *testing.T) {
	bus := &capture{}
	r := NewStoreRecorder(store.NewMemoryStore())
	r.SetPublisher(bus)

	run := store.Run{ID: "run-2", Project: "blog", Status: store.StatusFailed, Errors: []string{"circular dependency: A -> B -> A"}}
	require.NoError(t, r.Record(context.Background(), run, nil))
	require.Len(t, bus.events, 1)
	assert.Equal(t, TypeRunFailed, bus.events[0].EventType)
	assert.Contains(t, bus.events[0].Summary, "circular dependency")
}

func TestStoreRecorder_StoreErrorSkipsPublish(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	bus := &capture{}
	r := NewStoreRecorder(s)
	r.SetPublisher(bus)

	run := store.Run{ID: "dup", Project: "blog", Status: store.StatusSucceeded}
	require.NoError(t, s.SaveRun(ctx, run, nil))
	assert.Error(t, r.Record(ctx, run, nil))
	assert.Empty(t, bus.events)
}
