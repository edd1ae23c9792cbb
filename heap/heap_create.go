package heap

import (
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

const (
	// DefaultCapacity is the number of bytes reserved for a heap when CreateOptions.Capacity
	// is left at 0. It is equal to 256Mb.
	DefaultCapacity int = 256 * 1024 * 1024
)

// CreateOptions contains optional settings when creating a Heap
type CreateOptions struct {
	// Capacity is the number of bytes of address space reserved for the heap. The break can
	// never be advanced past it. 0 selects DefaultCapacity.
	Capacity int
}

// New reserves a new heap region. The region is reserved in full up front, but on platforms
// that support it the operating system will not commit pages until they are touched.
func New(logger *slog.Logger, options CreateOptions) (*Heap, error) {
	capacity := options.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	} else if capacity < 0 {
		return nil, errors.Newf("heap.CreateOptions.Capacity was %d, but it must not be negative", capacity)
	}

	region, release, err := reserveRegion(capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reserve a %d byte heap region", capacity)
	}

	logger.Debug("Heap::New", slog.Int("Capacity", capacity))

	return &Heap{
		logger:  logger,
		region:  region,
		release: release,
	}, nil
}

var (
	defaultHeapOnce sync.Once
	defaultHeap     *Heap
)

// Default returns the process-wide heap. It is reserved on first use with DefaultCapacity and
// is never destroyed. It panics if the region can't be reserved, since nothing in the process
// can allocate from it after that.
func Default() *Heap {
	defaultHeapOnce.Do(func() {
		var err error
		defaultHeap, err = New(slog.Default(), CreateOptions{})
		if err != nil {
			panic(errors.Wrap(err, "failed to create the default heap"))
		}
	})

	return defaultHeap
}
