package malloc

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// Strategy is the block selection policy used by Allocate. The zero value is best fit.
	// First fit requires AllocatorCreateExternallySynchronized.
	Strategy metadata.AllocationStrategy
	// Heap is the heap the allocator will extend. If it is nil, the process-wide heap from
	// heap.Default is used.
	Heap *heap.Heap
}

// New creates a new Allocator. Its block chain is empty until the first allocation.
//
// logger - Allocator activity and heap exhaustion are reported here
//
// options - Optional parameters: it is valid to leave all the fields blank, which produces a
// mutex-guarded best fit allocator on the process-wide heap
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	useMutex := options.Flags&AllocatorCreateExternallySynchronized == 0

	err := checkStrategy(options.Strategy, useMutex)
	if err != nil {
		return nil, err
	}

	h := options.Heap
	if h == nil {
		h = heap.Default()
	}

	allocator := &Allocator{
		createFlags: options.Flags,
		strategy:    options.Strategy,
	}
	allocator.mutex.UseMutex = useMutex
	allocator.engine.init(logger, h)

	logger.Debug("Allocator::New",
		slog.String("Flags", options.Flags.String()),
		slog.String("Strategy", options.Strategy.String()),
	)

	return allocator, nil
}

func checkStrategy(strategy metadata.AllocationStrategy, useMutex bool) error {
	switch strategy {
	case metadata.AllocationStrategyBestFit:
		return nil
	case metadata.AllocationStrategyFirstFit:
		if useMutex {
			return errors.New("AllocationStrategyFirstFit can only be used with AllocatorCreateExternallySynchronized")
		}
		return nil
	}

	return errors.Newf("unknown allocation strategy: %d", strategy)
}
