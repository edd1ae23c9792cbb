// Package heap provides the break-pointer region that every allocator in this module draws
// its memory from. A Heap is a single reserved address range with a break offset that only
// moves forward: Sbrk is the only way new memory comes into existence and nothing is ever
// returned to the operating system.
package heap

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// ErrOutOfMemory is returned when the break can't be advanced because the heap's reserved
// capacity would be exceeded
var ErrOutOfMemory = errors.New("heap capacity exhausted")

// Heap is a contiguous region of memory with a monotonic break. It is safe for concurrent
// use: Sbrk is serialized by the heap's own mutex no matter which allocator calls it.
type Heap struct {
	logger *slog.Logger

	mutex      sync.Mutex
	brk        int
	extensions int

	region  []byte
	release func() error
}

// Sbrk advances the break by increment bytes and returns the previous break, which is the
// offset of the newly available range. An increment of 0 returns the current break. If the
// new break would pass the end of the reserved region, ErrOutOfMemory is returned and the
// break does not move.
func (h *Heap) Sbrk(increment int) (int, error) {
	if increment < 0 {
		return 0, errors.Newf("attempted to shrink the heap by %d bytes, but heaps never shrink", -increment)
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.region == nil {
		return 0, errors.New("attempted to extend a heap that has been destroyed")
	}

	previous := h.brk
	if increment == 0 {
		return previous, nil
	}

	if increment > len(h.region)-previous {
		h.logger.LogAttrs(context.Background(), slog.LevelError, "Heap::Sbrk out of memory",
			slog.Int("Increment", increment),
			slog.Int("Break", previous),
			slog.Int("Capacity", len(h.region)),
		)
		return 0, errors.Wrapf(ErrOutOfMemory, "could not extend the break at %d by %d bytes", previous, increment)
	}

	h.brk += increment
	h.extensions++

	h.logger.Debug("Heap::Sbrk", slog.Int("Increment", increment), slog.Int("Break", h.brk))

	return previous, nil
}

// Break returns the current break offset
func (h *Heap) Break() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.brk
}

// Extensions returns the number of successful, non-zero Sbrk calls made on this heap
func (h *Heap) Extensions() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.extensions
}

// Capacity returns the number of bytes reserved for the heap
func (h *Heap) Capacity() int {
	return len(h.region)
}

// Bytes returns a view of size bytes of heap memory starting at offset. The range must lie
// below the break, but that is not checked: callers are expected to only ever address memory
// they obtained through Sbrk.
func (h *Heap) Bytes(offset, size int) []byte {
	return h.region[offset : offset+size : offset+size]
}

// Destroy releases the heap's region back to the operating system. Every view returned by
// Bytes becomes invalid. It must not be called on the heap returned by Default.
func (h *Heap) Destroy() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.region == nil {
		return errors.New("attempted to destroy a heap that has already been destroyed")
	}

	h.logger.Debug("Heap::Destroy", slog.Int("Break", h.brk), slog.Int("Extensions", h.extensions))

	err := h.release()
	h.region = nil
	h.release = nil
	return err
}
