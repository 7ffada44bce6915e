package compilation

import "sync"

// Capture is a thread-safe stderr buffer. Chunks appended while capturing
// is active are retained; chunks appended outside a
// RegisterCapture/UnregisterCapture window are discarded. Append may be
// called concurrently from multiple goroutines (the build tool may stream
// compiler output from several workers); RegisterCapture/UnregisterCapture
// are expected to be called once per build from a single goroutine.
type Capture struct {
	mu         sync.Mutex
	buf        []byte
	capturing  bool
}

// NewCapture returns an idle Capture.
func NewCapture() *Capture {
	return &Capture{}
}

// RegisterCapture opens the capture window, discarding any previously
// buffered content.
func (c *Capture) RegisterCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capturing = true
	c.buf = c.buf[:0]
}

// UnregisterCapture closes the capture window. Further Append calls are
// ignored until RegisterCapture is called again.
func (c *Capture) UnregisterCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capturing = false
}

// Append adds text to the buffer if the capture window is open, otherwise
// it is a no-op.
func (c *Capture) Append(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.capturing {
		return
	}
	c.buf = append(c.buf, text...)
}

// Snapshot returns the buffer's current contents. Safe to call at any
// time, including while capturing is still open.
func (c *Capture) Snapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.buf)
}
