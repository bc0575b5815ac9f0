// ABOUTME: Tests for the device-change watcher
// ABOUTME: Covers snapshot diffing and event delivery from the poll loop
package device

import (
	"sync"
	"testing"
	"time"
)

func TestDiffSnapshots(t *testing.T) {
	speakers := Endpoint{ID: "a", Name: "Speakers", Default: true}
	headphones := Endpoint{ID: "b", Name: "Headphones"}

	tests := []struct {
		name string
		prev []Endpoint
		next []Endpoint
		want []Event
	}{
		{
			name: "no change",
			prev: []Endpoint{speakers},
			next: []Endpoint{speakers},
			want: nil,
		},
		{
			name: "device added",
			prev: []Endpoint{speakers},
			next: []Endpoint{speakers, headphones},
			want: []Event{{Kind: EventAdded, Endpoint: headphones}},
		},
		{
			name: "device removed",
			prev: []Endpoint{speakers, headphones},
			next: []Endpoint{speakers},
			want: []Event{{Kind: EventRemoved, Endpoint: headphones}},
		},
		{
			name: "default moved",
			prev: []Endpoint{speakers, headphones},
			next: []Endpoint{
				{ID: "a", Name: "Speakers"},
				{ID: "b", Name: "Headphones", Default: true},
			},
			want: []Event{{Kind: EventDefaultChanged, Endpoint: Endpoint{ID: "b", Name: "Headphones", Default: true}}},
		},
		{
			name: "name changed",
			prev: []Endpoint{headphones},
			next: []Endpoint{{ID: "b", Name: "USB Headphones"}},
			want: []Event{{Kind: EventPropertyChanged, Endpoint: Endpoint{ID: "b", Name: "USB Headphones"}}},
		},
		{
			name: "added device that is already default",
			prev: nil,
			next: []Endpoint{speakers},
			want: []Event{{Kind: EventAdded, Endpoint: speakers}},
		},
		{
			name: "everything gone",
			prev: []Endpoint{speakers, headphones},
			next: nil,
			want: []Event{
				{Kind: EventRemoved, Endpoint: speakers},
				{Kind: EventRemoved, Endpoint: headphones},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diffSnapshots(tt.prev, tt.next)

			if len(got) != len(tt.want) {
				t.Fatalf("expected %d events, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i].Kind != tt.want[i].Kind {
					t.Errorf("event %d: expected kind %s, got %s", i, tt.want[i].Kind, got[i].Kind)
				}
				if got[i].Endpoint.ID != tt.want[i].Endpoint.ID {
					t.Errorf("event %d: expected endpoint %s, got %s", i, tt.want[i].Endpoint.ID, got[i].Endpoint.ID)
				}
			}
		})
	}
}

type scriptedEnum struct {
	mu    sync.Mutex
	eps   []Endpoint
	calls int
}

func (s *scriptedEnum) Endpoints() ([]Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return append([]Endpoint(nil), s.eps...), nil
}

func (s *scriptedEnum) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedEnum) set(eps []Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eps = eps
}

func TestWatcherEmitsEvents(t *testing.T) {
	enum := &scriptedEnum{eps: []Endpoint{{ID: "a", Name: "Speakers"}}}
	w := NewWatcher(enum, 5*time.Millisecond)

	go w.Run()
	defer w.Stop()

	// Let the initial snapshot land before changing the device set.
	deadline := time.Now().Add(time.Second)
	for enum.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	enum.set([]Endpoint{
		{ID: "a", Name: "Speakers"},
		{ID: "b", Name: "Headphones"},
	})

	select {
	case ev := <-w.Events():
		if ev.Kind != EventAdded {
			t.Errorf("expected added event, got %s", ev.Kind)
		}
		if ev.Endpoint.ID != "b" {
			t.Errorf("expected endpoint b, got %s", ev.Endpoint.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no event within 1s")
	}
}

func TestWatcherStopTerminatesRun(t *testing.T) {
	enum := &scriptedEnum{}
	w := NewWatcher(enum, 5*time.Millisecond)

	runDone := make(chan struct{})
	go func() {
		w.Run()
		close(runDone)
	}()

	w.Stop()

	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not terminate after Stop")
	}
}

func TestEventKindStrings(t *testing.T) {
	kinds := map[EventKind]string{
		EventAdded:           "added",
		EventRemoved:         "removed",
		EventStateChanged:    "state-changed",
		EventDefaultChanged:  "default-changed",
		EventPropertyChanged: "property-changed",
	}

	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("kind %d: expected %q, got %q", kind, want, got)
		}
	}
}
