// ABOUTME: Endpoint identity and the enumerator/opener surface
// ABOUTME: Defines the interfaces the keeper consumes to reach audio devices
package device

import "time"

// Endpoint identifies one OS audio render device. The ID is an opaque
// key that is stable across enumeration calls for as long as the device
// stays attached.
type Endpoint struct {
	ID      string
	Name    string
	Default bool

	// Native miniaudio device id, zero for synthetic endpoints.
	id deviceID
}

// Enumerator lists the currently active render endpoints. The snapshot
// is transient; callers re-enumerate on every coordination pass.
type Enumerator interface {
	Endpoints() ([]Endpoint, error)
}

// Opener opens a silent playback stream against one endpoint.
// bufferMs is the total ring capacity; larger buffers mean fewer
// render-loop wake-ups.
type Opener interface {
	Open(ep Endpoint, bufferMs int) (Stream, error)
}

// Stream is one shared-mode playback stream being fed silence.
//
// The render worker drives it: wait roughly one period, write as many
// silent frames as there is free space, repeat. Done fires once if the
// OS tears the stream down underneath us; after that the stream is
// dead and must be Closed.
type Stream interface {
	// Start begins playback.
	Start() error

	// FreeFrames reports how many frames of silence can be written
	// right now without blocking.
	FreeFrames() int

	// WriteSilence writes up to n frames of silence and reports how
	// many were accepted.
	WriteSilence(n int) (int, error)

	// Period is the interval between buffer refills; the render
	// worker never sleeps longer than this.
	Period() time.Duration

	// Done reports a forced disconnect (device invalidated, backend
	// stopped the stream). Never fires for a local Close.
	Done() <-chan error

	// Close stops playback and releases the native handles. Idempotent.
	Close()
}
