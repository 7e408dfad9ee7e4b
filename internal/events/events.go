// Package events implements a minimal in-process event bus used to notify
// interested components about authentication activity. Dispatch is
// fire-and-forget: handlers are invoked for their side effects and their
// outcome is never consumed by the dispatching code path.
package events

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event names dispatched by the authentication providers.
const (
	// LoginSucceeded is dispatched after a user authenticated and a session was opened.
	LoginSucceeded = "auth.login.succeeded"
	// UserProvisioned is dispatched when an external account is created locally on first login.
	UserProvisioned = "auth.user.provisioned"
)

// Event is a named notification carrying the authentication backend
// ("local", "directory", "oidc") and the local user the event refers to.
type Event struct {
	Name    string
	Backend string
	UserID  uint64
}

// Handler consumes a dispatched event.
type Handler func(Event)

var (
	// counter is a singleton for the dispatched-events counter vec.
	counter     *prometheus.CounterVec //nolint:gochecknoglobals
	counterOnce sync.Once              //nolint:gochecknoglobals
)

// Bus fans dispatched events out to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	counterOnce.Do(func() {
		counter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_dispatched_total",
				Help: "Number of dispatched events, differentiated by event name.",
			},
			[]string{"name"},
		)
	})

	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

var (
	defaultBus  *Bus      //nolint:gochecknoglobals
	defaultOnce sync.Once //nolint:gochecknoglobals
)

// Default returns the process wide bus shared by the authentication
// providers and their subscribers.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultBus = NewBus()
	})

	return defaultBus
}

// Subscribe registers a handler for the named event.
func (b *Bus) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// Dispatch delivers the event to all handlers subscribed to its name.
// Handlers run synchronously on the calling goroutine; the caller does not
// observe their outcome.
func (b *Bus) Dispatch(e Event) {
	counter.WithLabelValues(e.Name).Inc()

	b.mu.RLock()
	handlers := b.handlers[e.Name]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
