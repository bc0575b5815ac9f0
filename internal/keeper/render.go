// ABOUTME: Silent render worker loop
// ABOUTME: Keeps one stream's buffer topped up with silence until told to stop
package keeper

import (
	"context"
	"time"

	"github.com/Soundless-Audio/soundless-go/internal/device"
)

// runRender feeds silence to the stream until ctx is cancelled or the
// stream dies. Returns nil on a clean stop and the disconnect or write
// error otherwise. The wait is bounded by half the stream period, so
// shutdown is observed within one wait cycle.
func runRender(ctx context.Context, stream device.Stream) error {
	wait := stream.Period() / 2
	if wait < time.Millisecond {
		wait = time.Millisecond
	}

	ticker := time.NewTicker(wait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-stream.Done():
			if err == nil {
				err = device.ErrStreamStopped
			}
			return err

		case <-ticker.C:
			free := stream.FreeFrames()
			if free == 0 {
				continue
			}
			if _, err := stream.WriteSilence(free); err != nil {
				return err
			}
		}
	}
}
