// ABOUTME: Per-endpoint silent playback stream over miniaudio
// ABOUTME: Ring-buffer fed by the render worker, drained by the data callback
package device

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// Streams are opened at a fixed format; miniaudio converts to the
// device's native mix format internally, and zero bytes are
// bit-identical to silence in both integer PCM and float encodings.
const (
	streamSampleRate = 48000
	streamChannels   = 2
	streamFormat     = malgo.FormatS16
)

// ErrStreamStopped reports that the backend stopped the stream
// underneath us (device removed, format change, backend shutdown).
var ErrStreamStopped = errors.New("playback stream stopped by backend")

type malgoStream struct {
	device *malgo.Device
	ring   *Ring
	id     deviceID

	frameBytes int
	period     time.Duration

	done      chan error
	closed    atomic.Bool
	closeOnce sync.Once
}

// Open opens a silent playback stream against the given endpoint.
// The ring holds bufferMs of audio; the device pulls a quarter of that
// per callback, so the render worker wakes only a few times per
// buffer.
func (c *Context) Open(ep Endpoint, bufferMs int) (Stream, error) {
	if bufferMs < 40 {
		bufferMs = 40
	}

	frameBytes := streamChannels * malgo.SampleSizeInBytes(streamFormat)
	periodMs := bufferMs / 4

	s := &malgoStream{
		ring:       NewRing(streamSampleRate * frameBytes * bufferMs / 1000),
		id:         ep.id,
		frameBytes: frameBytes,
		period:     time.Duration(periodMs) * time.Millisecond,
		done:       make(chan error, 1),
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = streamFormat
	cfg.Playback.Channels = streamChannels
	cfg.Playback.DeviceID = s.id.Pointer()
	cfg.SampleRate = streamSampleRate
	cfg.PeriodSizeInMilliseconds = uint32(periodMs)
	cfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			// Underrun zero-fill inside Read is still silence.
			s.ring.Read(pOutput)
		},
		Stop: func() {
			if s.closed.Load() {
				return
			}
			select {
			case s.done <- ErrStreamStopped:
			default:
			}
		},
	}

	dev, err := malgo.InitDevice(c.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to open playback stream for %s: %w", ep.Name, err)
	}

	s.device = dev
	return s, nil
}

// Start begins playback.
func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	return nil
}

// FreeFrames reports the writable frame count.
func (s *malgoStream) FreeFrames() int {
	return s.ring.Free() / s.frameBytes
}

// WriteSilence writes up to n frames of silence into the ring.
func (s *malgoStream) WriteSilence(n int) (int, error) {
	if s.closed.Load() {
		return 0, ErrStreamStopped
	}
	written := s.ring.WriteZeros(n * s.frameBytes)
	return written / s.frameBytes, nil
}

// Period is the refill interval.
func (s *malgoStream) Period() time.Duration {
	return s.period
}

// Done reports a forced disconnect.
func (s *malgoStream) Done() <-chan error {
	return s.done
}

// Close stops playback and releases the device. Idempotent; the stop
// callback it provokes is suppressed so a local Close never looks like
// a disconnect.
func (s *malgoStream) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if err := s.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		s.device.Uninit()
	})
}
