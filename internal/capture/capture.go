// Package capture implements the capture-pipe coordinator described by
// the library's Output contract: a pipe is allocated lazily, drained in
// the background once both ends are settled, and joined exactly once at
// wait time.
package capture

import (
	"bytes"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

type state int

const (
	unused state = iota
	allocated
	draining
)

// Coordinator is a capture-pipe state machine. The zero value is ready
// to use and represents Unused: no pipe exists until WriteEnd is first
// called.
type Coordinator struct {
	mu    sync.Mutex
	state state
	r, w  *os.File
	eg    errgroup.Group
	buf   bytes.Buffer
}

// New returns an unallocated Coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// WriteEnd returns the write end of the capture pipe, allocating it on
// first call. Every call after the first returns the same file.
func (c *Coordinator) WriteEnd() (*os.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == unused {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, err
		}
		c.r, c.w = r, w
		c.state = allocated
	}
	return c.w, nil
}

// ReadEnd returns the read end of the capture pipe and whether a pipe
// was ever allocated. Used by the Reader handle variant, which owns and
// drains the read end itself instead of going through StartDrain.
func (c *Coordinator) ReadEnd() (*os.File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == unused {
		return nil, false
	}
	return c.r, true
}

// CloseWrite closes the write end, if one was allocated. Safe to call
// even when no pipe exists.
func (c *Coordinator) CloseWrite() error {
	c.mu.Lock()
	w := c.w
	c.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// StartDrain begins copying the read end into an internal buffer on a
// background goroutine, if a pipe was allocated. A no-op on an unused
// coordinator or one already draining.
func (c *Coordinator) StartDrain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != allocated {
		return
	}
	c.state = draining
	r := c.r
	c.eg.Go(func() error {
		_, copyErr := io.Copy(&c.buf, r)
		closeErr := r.Close()
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	})
}

// JoinDrain blocks until the drain goroutine (if any) has finished, then
// returns the captured bytes. ok is false when the coordinator was
// never allocated: the caller should treat the result as absent, not
// empty.
func (c *Coordinator) JoinDrain() (data []byte, ok bool, err error) {
	c.mu.Lock()
	wasAllocated := c.state != unused
	c.mu.Unlock()
	if !wasAllocated {
		return nil, false, nil
	}
	if err := c.eg.Wait(); err != nil {
		return nil, true, err
	}
	return c.buf.Bytes(), true, nil
}
