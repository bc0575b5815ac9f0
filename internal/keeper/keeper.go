// ABOUTME: Device change coordinator
// ABOUTME: Reconciles the session collection against live device notifications
package keeper

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Soundless-Audio/soundless-go/internal/device"
)

// Config holds coordinator configuration.
type Config struct {
	// BufferMs is the silent stream buffer size per endpoint.
	BufferMs int
}

// EndpointStatus is a point-in-time view of one kept endpoint, for
// status replies and the TUI.
type EndpointStatus struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
	State   string `json:"state"`
	RunID   string `json:"run_id"`
}

// Keeper owns the collection of sessions, one per active render
// endpoint, and drives it from device notifications. All Start, Stop,
// and Restart work runs serialized on the Main loop; notification
// sources only flag a pending restart and return.
type Keeper struct {
	enum     device.Enumerator
	opener   device.Opener
	bufferMs int

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionEvents chan SessionEvent
	deviceEvents  <-chan device.Event

	restartCh    chan struct{}
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	restarts atomic.Int64

	// Shared between the notification source and the process glue;
	// the last release runs the cleanup hook.
	refs    atomic.Int32
	cleanup func()
}

// New creates a coordinator. The caller holds the initial reference;
// cleanup (may be nil) runs when the last reference is released.
func New(enum device.Enumerator, opener device.Opener, cfg Config, cleanup func()) *Keeper {
	if cfg.BufferMs <= 0 {
		cfg.BufferMs = 1000
	}

	k := &Keeper{
		enum:          enum,
		opener:        opener,
		bufferMs:      cfg.BufferMs,
		sessions:      make(map[string]*Session),
		sessionEvents: make(chan SessionEvent, 16),
		restartCh:     make(chan struct{}, 1),
		shutdownCh:    make(chan struct{}),
		cleanup:       cleanup,
	}
	k.refs.Store(1)

	return k
}

// Acquire takes a reference on the keeper.
func (k *Keeper) Acquire() {
	k.refs.Add(1)
}

// Release drops a reference; the last one runs the cleanup hook.
func (k *Keeper) Release() {
	if k.refs.Add(-1) == 0 && k.cleanup != nil {
		k.cleanup()
	}
}

// AttachDeviceEvents wires a notification source. Must be called
// before Main.
func (k *Keeper) AttachDeviceEvents(events <-chan device.Event) {
	k.deviceEvents = events
}

// FireRestart flags a pending restart. Non-blocking and callable from
// any goroutine; rapid calls coalesce into one pending restart.
func (k *Keeper) FireRestart() {
	select {
	case k.restartCh <- struct{}{}:
	default:
	}
}

// FireShutdown signals process-wide shutdown, causing Main to tear
// everything down and return. Callable from any goroutine, any number
// of times.
func (k *Keeper) FireShutdown() {
	k.shutdownOnce.Do(func() {
		close(k.shutdownCh)
	})
}

// Main starts the sessions and runs the control loop until
// FireShutdown. The initial start fails only if the enumerator itself
// is unreachable; per-device failures just skip the device.
func (k *Keeper) Main() error {
	if err := k.start(); err != nil {
		k.stop()
		return fmt.Errorf("initial start: %w", err)
	}

	for {
		select {
		case <-k.shutdownCh:
			k.stop()
			return nil

		case <-k.restartCh:
			k.restart()

		case ev := <-k.sessionEvents:
			log.Printf("Session %s: stream lost (%v), scheduling restart", ev.RunID, ev.Err)
			k.FireRestart()

		case ev := <-k.deviceEvents:
			log.Printf("Device notification: %s %q, scheduling restart", ev.Kind, ev.Endpoint.Name)
			k.FireRestart()
		}
	}
}

// Restarts reports how many restart cycles have run.
func (k *Keeper) Restarts() int64 {
	return k.restarts.Load()
}

// Status reports the kept endpoints, sorted by name.
func (k *Keeper) Status() []EndpointStatus {
	k.mu.RLock()
	defer k.mu.RUnlock()

	statuses := make([]EndpointStatus, 0, len(k.sessions))
	for _, s := range k.sessions {
		ep := s.Endpoint()
		statuses = append(statuses, EndpointStatus{
			ID:      ep.ID,
			Name:    ep.Name,
			Default: ep.Default,
			State:   s.State().String(),
			RunID:   s.RunID(),
		})
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})

	return statuses
}

// start enumerates the active endpoints and brings up one session per
// endpoint. A device whose session fails to initialize is skipped; it
// gets retried on the next restart.
func (k *Keeper) start() error {
	endpoints, err := k.enum.Endpoints()
	if err != nil {
		return fmt.Errorf("enumerate endpoints: %w", err)
	}

	fresh := make(map[string]*Session, len(endpoints))
	for _, ep := range endpoints {
		if _, dup := fresh[ep.ID]; dup {
			continue
		}

		s := NewSession(ep, k.opener, k.bufferMs, k.sessionEvents)
		if err := s.Initialize(); err != nil {
			log.Printf("Skipping %q: %v", ep.Name, err)
			continue
		}
		fresh[ep.ID] = s
	}

	k.mu.Lock()
	k.sessions = fresh
	k.mu.Unlock()

	log.Printf("Keeping %d endpoint(s) awake", len(fresh))
	return nil
}

// stop shuts down every session in parallel and clears the
// collection. Order-independent; total time is bounded by one
// session's shutdown bound, not their sum.
func (k *Keeper) stop() {
	k.mu.Lock()
	sessions := k.sessions
	k.sessions = make(map[string]*Session)
	k.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Shutdown()
		}(s)
	}
	wg.Wait()
}

// restart rebuilds the whole collection from a fresh enumeration.
// Every notification kind funnels here; tearing down and rebuilding a
// handful of sessions is cheap, and it cannot get a diff wrong.
func (k *Keeper) restart() {
	log.Printf("Restarting all sessions")
	k.restarts.Add(1)
	k.stop()
	if err := k.start(); err != nil {
		log.Printf("Restart: %v", err)
	}
}
