// ABOUTME: Oto-backed fallback sink for the default endpoint
// ABOUTME: Used when the miniaudio context cannot be initialized
package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// DefaultSink keeps only the default output endpoint awake. Oto cannot
// address individual devices, so it exposes a single synthetic
// endpoint; it exists so a broken miniaudio install degrades to
// "default device stays awake" instead of "nothing works".
type DefaultSink struct {
	otoCtx *oto.Context
}

// NewDefaultSink initializes the oto context at the standard stream
// format.
func NewDefaultSink() (*DefaultSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   streamSampleRate,
		ChannelCount: streamChannels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	return &DefaultSink{otoCtx: ctx}, nil
}

// Endpoints reports the single synthetic default endpoint.
func (d *DefaultSink) Endpoints() ([]Endpoint, error) {
	return []Endpoint{{
		ID:      "default",
		Name:    "Default output",
		Default: true,
	}}, nil
}

// Open creates a silent player on the default endpoint. Oto pulls
// samples itself, so the stream reports no free frames and the render
// worker only supervises shutdown.
func (d *DefaultSink) Open(ep Endpoint, bufferMs int) (Stream, error) {
	player := d.otoCtx.NewPlayer(silenceReader{})

	if bufferMs < 40 {
		bufferMs = 40
	}

	return &otoStream{
		player: player,
		period: time.Duration(bufferMs/4) * time.Millisecond,
		done:   make(chan error, 1),
	}, nil
}

// Backend reports the backend name for logs and status replies.
func (d *DefaultSink) Backend() string {
	return "oto"
}

// Close suspends the oto context; oto offers no full teardown.
func (d *DefaultSink) Close() {
	if d.otoCtx != nil {
		d.otoCtx.Suspend()
	}
}

type otoStream struct {
	player    *oto.Player
	period    time.Duration
	done      chan error
	closeOnce sync.Once
}

func (s *otoStream) Start() error {
	s.player.Play()
	return nil
}

func (s *otoStream) FreeFrames() int { return 0 }

func (s *otoStream) WriteSilence(n int) (int, error) { return 0, nil }

func (s *otoStream) Period() time.Duration { return s.period }

func (s *otoStream) Done() <-chan error { return s.done }

func (s *otoStream) Close() {
	s.closeOnce.Do(func() {
		s.player.Close()
	})
}

// silenceReader is an endless stream of zero samples.
type silenceReader struct{}

func (silenceReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
