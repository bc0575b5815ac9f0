// ABOUTME: Byte ring buffer between the render worker and the device callback
// ABOUTME: Worker writes silence in, the audio callback drains it out
package device

import "sync"

// Ring is a mutex-guarded circular byte buffer. The render worker
// writes silent frames on one side; the backend's data callback reads
// on the other, from its own thread.
type Ring struct {
	buf   []byte
	read  int
	write int
	size  int
	count int
	mu    sync.Mutex
}

// NewRing creates a ring buffer with the given capacity in bytes.
func NewRing(capacity int) *Ring {
	return &Ring{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write adds bytes to the ring and reports how many fit.
func (r *Ring) Write(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for i := 0; i < len(p) && r.count < r.size; i++ {
		r.buf[r.write] = p[i]
		r.write = (r.write + 1) % r.size
		r.count++
		written++
	}
	return written
}

// WriteZeros adds up to n zero bytes and reports how many fit.
func (r *Ring) WriteZeros(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for written < n && r.count < r.size {
		r.buf[r.write] = 0
		r.write = (r.write + 1) % r.size
		r.count++
		written++
	}
	return written
}

// Read fills p from the ring and reports how many bytes were real data.
// The remainder of p is zero-filled, so an underrun still reads as
// silence.
func (r *Ring) Read(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	read := 0
	for i := 0; i < len(p) && r.count > 0; i++ {
		p[i] = r.buf[r.read]
		r.read = (r.read + 1) % r.size
		r.count--
		read++
	}

	for i := read; i < len(p); i++ {
		p[i] = 0
	}

	return read
}

// Len reports the number of buffered bytes.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Free reports the remaining capacity in bytes.
func (r *Ring) Free() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size - r.count
}
