// ABOUTME: Session lifecycle guard for one endpoint
// ABOUTME: Owns the stream and render worker, reports disconnects upward
package keeper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Soundless-Audio/soundless-go/internal/device"
	"github.com/google/uuid"
)

// State is the lifecycle state of a session.
type State int32

const (
	StateCreated State = iota
	StateInitializing
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SessionEvent reports a mid-session failure to the coordinator.
type SessionEvent struct {
	EndpointID string
	RunID      string
	Err        error
}

// Session keeps one endpoint awake. It owns the playback stream and
// the render worker goroutine; the coordinator owns the session and is
// the only caller of Initialize and Shutdown.
type Session struct {
	endpoint device.Endpoint
	opener   device.Opener
	bufferMs int
	runID    string
	events   chan<- SessionEvent

	stream device.Stream
	cancel context.CancelFunc
	done   chan struct{}

	state    atomic.Int32
	stopOnce sync.Once
}

// NewSession creates a session for the given endpoint. events receives
// at most one disconnect report; it must be buffered or drained.
func NewSession(ep device.Endpoint, opener device.Opener, bufferMs int, events chan<- SessionEvent) *Session {
	return &Session{
		endpoint: ep,
		opener:   opener,
		bufferMs: bufferMs,
		runID:    uuid.New().String(),
		events:   events,
	}
}

// Endpoint returns the endpoint this session keeps awake.
func (s *Session) Endpoint() device.Endpoint {
	return s.endpoint
}

// RunID returns the log-correlation id for this session run.
func (s *Session) RunID() string {
	return s.runID
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Initialize opens the stream, pre-fills it with silence, starts
// playback, and starts the render worker. On failure every partially
// acquired resource is released before returning.
func (s *Session) Initialize() error {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateInitializing)) {
		return fmt.Errorf("session for %s already initialized", s.endpoint.Name)
	}

	stream, err := s.opener.Open(s.endpoint, s.bufferMs)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("open stream: %w", err)
	}

	if free := stream.FreeFrames(); free > 0 {
		if _, err := stream.WriteSilence(free); err != nil {
			stream.Close()
			s.state.Store(int32(StateStopped))
			return fmt.Errorf("pre-fill stream: %w", err)
		}
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("start stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stream = stream
	s.cancel = cancel
	s.done = make(chan struct{})

	// Running before the worker launches, so a disconnect on its very
	// first wait cycle is still reported.
	s.state.Store(int32(StateRunning))

	go func() {
		defer close(s.done)

		err := runRender(ctx, stream)
		if err == nil {
			return
		}

		// Only report if the coordinator didn't ask us to stop.
		if s.State() == StateRunning {
			select {
			case s.events <- SessionEvent{EndpointID: s.endpoint.ID, RunID: s.runID, Err: err}:
			default:
			}
		}
	}()

	log.Printf("Session %s: keeping %q awake", s.runID, s.endpoint.Name)

	return nil
}

// Shutdown stops the render worker, waits bounded for it to exit, and
// releases the stream. Idempotent; safe before, after, or instead of a
// successful Initialize.
func (s *Session) Shutdown() {
	s.stopOnce.Do(func() {
		s.state.Store(int32(StateShuttingDown))

		if s.cancel != nil {
			s.cancel()
		}

		if s.done != nil {
			select {
			case <-s.done:
			case <-time.After(s.waitBound()):
				log.Printf("Session %s: render worker did not exit in time", s.runID)
			}
		}

		if s.stream != nil {
			s.stream.Close()
		}

		s.state.Store(int32(StateStopped))
	})
}

// waitBound is how long Shutdown waits for the worker, a small
// multiple of the worker's longest wait cycle.
func (s *Session) waitBound() time.Duration {
	if s.stream == nil {
		return time.Second
	}

	bound := 4 * s.stream.Period()
	if bound < time.Second {
		bound = time.Second
	}
	return bound
}
