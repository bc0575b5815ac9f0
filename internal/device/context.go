// ABOUTME: Miniaudio-backed endpoint access
// ABOUTME: Owns the malgo context and enumerates active render endpoints
package device

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/gen2brain/malgo"
)

type deviceID = malgo.DeviceID

// Context owns the miniaudio context used for both enumeration and
// stream creation. It is the process-wide handle to the audio backend;
// construction failure means the backend is unreachable.
type Context struct {
	ctx *malgo.AllocatedContext
}

// NewContext initializes the miniaudio backend.
func NewContext() (*Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}

	return &Context{ctx: ctx}, nil
}

// Endpoints enumerates the currently active render endpoints.
func (c *Context) Endpoints() ([]Endpoint, error) {
	infos, err := c.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("device enumeration failed: %w", err)
	}

	endpoints := make([]Endpoint, 0, len(infos))
	for _, info := range infos {
		id := info.ID
		endpoints = append(endpoints, Endpoint{
			ID:      hex.EncodeToString(id[:]),
			Name:    info.Name(),
			Default: info.IsDefault != 0,
			id:      info.ID,
		})
	}

	return endpoints, nil
}

// Backend reports the backend name for logs and status replies.
func (c *Context) Backend() string {
	return "miniaudio"
}

// Close releases the miniaudio context. Streams opened through this
// context must be closed first.
func (c *Context) Close() {
	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			log.Printf("Warning: miniaudio context uninit error: %v", err)
		}
		c.ctx.Free()
		c.ctx = nil
	}
}
