package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/event"
)

func testEvent(typ string) event.DomainEvent {
	return event.DomainEvent{ID: typ, EventType: typ, RunID: "run-1", Project: "blog"}
}

func TestBus_DispatchesInOrderAndDrainsOnStop(t *testing.T) {
	b := New(16)
	var (
		mu  sync.Mutex
		got []string
	)
	b.Subscribe("collect", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.EventType)
		return nil
	}))
	b.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	b.Subscribe("log", NewLogConsumer())
	b.Start(context.Background())

	for _, typ := range []string{event.TypeRunStarted, event.TypeGapFound, event.TypeRunCompleted} {
		b.Publish(context.Background(), testEvent(typ))
	}
	b.Stop()

	assert.Equal(t, []string{event.TypeRunStarted, event.TypeGapFound, event.TypeRunCompleted}, got)

	// Publishing after Stop drops instead of panicking.
	b.Publish(context.Background(), testEvent(event.TypeRunFailed))
	b.Stop()
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := New(1)
	b.Publish(context.Background(), testEvent("a"))
	b.Publish(context.Background(), testEvent("b"))
	assert.Len(t, b.events, 1)
}

func TestFanout(t *testing.T) {
	f := NewFanout()
	ch, cancel := f.Watch(1)
	assert.Equal(t, 1, f.Watchers())

	require.NoError(t, f.HandleEvent(context.Background(), testEvent("a")))
	// Second event overflows the watcher buffer and is dropped.
	require.NoError(t, f.HandleEvent(context.Background(), testEvent("b")))

	select {
	case evt := <-ch:
		assert.Equal(t, "a", evt.EventType)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	cancel()
	assert.Equal(t, 0, f.Watchers())
	_, open := <-ch
	assert.False(t, open)
}
