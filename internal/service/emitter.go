package service

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Event names emitted by the services.
const (
	EventWidgetsChanged       = "canvas:widgets-changed"
	EventPlacementRejected    = "canvas:placement-rejected"
	EventDragChanged          = "canvas:drag-changed"
	EventPagesChanged         = "site:pages-changed"
	EventConfigurationChanged = "site:configuration-changed"
	EventPublished            = "publish:completed"
	EventImported             = "publish:imported"
)

// EventEmitter decouples services from the transport that delivers events
// to editors (server-sent events, logs, tests).
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded events with the given name.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// LogEmitter writes every event to the logger at debug level.
type LogEmitter struct {
	Logger *log.Logger
}

func (l LogEmitter) Emit(_ context.Context, event string, data any) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Debug("event", "name", event, "data", data)
}

// Event is one broadcast emission.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Broadcaster fans events out to subscribers. Slow subscribers drop events
// rather than block the emitter.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

func (b *Broadcaster) Emit(_ context.Context, event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- Event{Name: event, Data: data}:
		default:
		}
	}
}

// Subscribe registers a new listener. The returned func unsubscribes and
// closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// MultiEmitter forwards each event to every emitter in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event string, data any) {
	for _, e := range m {
		e.Emit(ctx, event, data)
	}
}
