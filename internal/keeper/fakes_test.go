// ABOUTME: In-memory device fakes for keeper tests
// ABOUTME: Implements Enumerator, Opener, and Stream without audio hardware
package keeper

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Soundless-Audio/soundless-go/internal/device"
)

var errFakeOpenFailed = errors.New("open failed")

type fakeStream struct {
	period   time.Duration
	free     int
	startErr error
	writeErr error

	done       chan error
	writes     atomic.Int64
	closeCount atomic.Int64

	onClose func()
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		period: 10 * time.Millisecond,
		free:   64,
		done:   make(chan error, 1),
	}
}

func (f *fakeStream) Start() error {
	return f.startErr
}

func (f *fakeStream) FreeFrames() int {
	return f.free
}

func (f *fakeStream) WriteSilence(n int) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes.Add(int64(n))
	return n, nil
}

func (f *fakeStream) Period() time.Duration {
	return f.period
}

func (f *fakeStream) Done() <-chan error {
	return f.done
}

func (f *fakeStream) Close() {
	if f.closeCount.Add(1) == 1 && f.onClose != nil {
		f.onClose()
	}
}

type fakeOpener struct {
	mu      sync.Mutex
	opens   int
	failFor map[string]bool
	streams map[string]*fakeStream

	// Gauge of streams currently open; its high-water mark exposes
	// interleaved rebuilds.
	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		failFor: make(map[string]bool),
		streams: make(map[string]*fakeStream),
	}
}

func (f *fakeOpener) Open(ep device.Endpoint, bufferMs int) (device.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.opens++
	if f.failFor[ep.ID] {
		return nil, errFakeOpenFailed
	}

	s := newFakeStream()
	s.onClose = func() {
		f.active.Add(-1)
	}

	n := f.active.Add(1)
	for {
		high := f.maxActive.Load()
		if n <= high || f.maxActive.CompareAndSwap(high, n) {
			break
		}
	}

	f.streams[ep.ID] = s
	return s, nil
}

func (f *fakeOpener) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeOpener) stream(id string) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[id]
}

type fakeEnum struct {
	mu  sync.Mutex
	eps []device.Endpoint
	err error
}

func (f *fakeEnum) Endpoints() ([]device.Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return append([]device.Endpoint(nil), f.eps...), nil
}

func (f *fakeEnum) set(eps []device.Endpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eps = eps
}

func ep(id, name string) device.Endpoint {
	return device.Endpoint{ID: id, Name: name}
}
