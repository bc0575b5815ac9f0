// ABOUTME: Device-change notification source
// ABOUTME: Polls enumeration snapshots and diffs them into typed events
package device

import (
	"context"
	"log"
	"time"
)

// EventKind classifies a device notification.
type EventKind int

const (
	// EventAdded reports a newly active endpoint.
	EventAdded EventKind = iota
	// EventRemoved reports an endpoint that is no longer active.
	EventRemoved
	// EventStateChanged reports an endpoint state transition. Presence
	// polling folds most state transitions into add/remove, so this
	// kind is kept for completeness of the handler surface.
	EventStateChanged
	// EventDefaultChanged reports a new default endpoint.
	EventDefaultChanged
	// EventPropertyChanged reports a property change (display name).
	EventPropertyChanged
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventStateChanged:
		return "state-changed"
	case EventDefaultChanged:
		return "default-changed"
	case EventPropertyChanged:
		return "property-changed"
	default:
		return "unknown"
	}
}

// Event is one device notification.
type Event struct {
	Kind     EventKind
	Endpoint Endpoint
}

// Watcher emits device-change events by polling the enumerator and
// diffing consecutive snapshots. It never blocks on a slow consumer;
// the consumer coalesces anyway, so dropped events cost nothing.
type Watcher struct {
	enum     Enumerator
	interval time.Duration
	events   chan Event
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWatcher creates a watcher polling at the given interval.
func NewWatcher(enum Enumerator, interval time.Duration) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		enum:     enum,
		interval: interval,
		events:   make(chan Event, 16),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Events returns the notification channel.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run polls until Stop is called. Blocks; run it on its own goroutine.
func (w *Watcher) Run() {
	defer close(w.done)

	prev, err := w.enum.Endpoints()
	if err != nil {
		log.Printf("Watcher: initial enumeration failed: %v", err)
		prev = nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			next, err := w.enum.Endpoints()
			if err != nil {
				log.Printf("Watcher: enumeration failed: %v", err)
				continue
			}

			for _, ev := range diffSnapshots(prev, next) {
				select {
				case w.events <- ev:
				default:
					log.Printf("Watcher: dropping %s event for %s", ev.Kind, ev.Endpoint.Name)
				}
			}
			prev = next
		}
	}
}

// Stop ends the poll loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
}

// diffSnapshots computes the events that move prev to next.
func diffSnapshots(prev, next []Endpoint) []Event {
	var events []Event

	prevByID := make(map[string]Endpoint, len(prev))
	for _, ep := range prev {
		prevByID[ep.ID] = ep
	}

	nextByID := make(map[string]Endpoint, len(next))
	for _, ep := range next {
		nextByID[ep.ID] = ep

		old, ok := prevByID[ep.ID]
		if !ok {
			events = append(events, Event{Kind: EventAdded, Endpoint: ep})
			continue
		}
		if old.Name != ep.Name {
			events = append(events, Event{Kind: EventPropertyChanged, Endpoint: ep})
		}
		if !old.Default && ep.Default {
			events = append(events, Event{Kind: EventDefaultChanged, Endpoint: ep})
		}
	}

	for _, ep := range prev {
		if _, ok := nextByID[ep.ID]; !ok {
			events = append(events, Event{Kind: EventRemoved, Endpoint: ep})
		}
	}

	return events
}
