// Package eventbus provides an in-process pub/sub bus for run events.
// The compiler publishes after a run is recorded; subscribers process
// events asynchronously on a single consumer goroutine.
package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/matthewbaird/turbine/internal/event"
	"github.com/matthewbaird/turbine/internal/logger"
)

// Handler processes an event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DomainEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in order.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan event.DomainEvent
	done        chan struct{}
	stopped     bool
	log         *zap.SugaredLogger
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		events: make(chan event.DomainEvent, bufSize),
		done:   make(chan struct{}),
		log:    logger.Named("eventbus"),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full
// or the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.log.Warnw("bus stopped, dropping event", logger.FieldEventType, evt.EventType, "id", evt.ID)
		return
	}
	select {
	case b.events <- evt:
	default:
		b.log.Warnw("buffer full, dropping event", logger.FieldEventType, evt.EventType, "id", evt.ID)
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				// Drain remaining events before exiting.
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for queued events to be dispatched.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.stopped = true
	close(b.events)
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.Errorw("handler error",
				"handler", s.name,
				logger.FieldEventType, evt.EventType,
				logger.FieldRunID, evt.RunID,
				zap.Error(err))
		}
	}
}
