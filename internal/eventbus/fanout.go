package eventbus

import (
	"context"
	"sync"

	"github.com/matthewbaird/turbine/internal/event"
)

// Fanout forwards events to live watchers, such as WebSocket clients.
// A watcher that cannot keep up loses events rather than stalling the bus.
type Fanout struct {
	mu       sync.Mutex
	next     int
	watchers map[int]chan event.DomainEvent
}

func NewFanout() *Fanout {
	return &Fanout{watchers: make(map[int]chan event.DomainEvent)}
}

// Watch registers a watcher with the given buffer. The returned cancel
// function unregisters it and closes the channel.
func (f *Fanout) Watch(buf int) (<-chan event.DomainEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	ch := make(chan event.DomainEvent, buf)
	f.watchers[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.watchers, id)
			close(ch)
		})
	}
}

// Watchers reports the number of registered watchers.
func (f *Fanout) Watchers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}

func (f *Fanout) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.watchers {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}
