package malloc

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

var (
	defaultOnce      sync.Once
	defaultAllocator *Allocator

	unsynchronizedOnce      sync.Once
	unsynchronizedAllocator *Allocator
)

func mustNew(options CreateOptions) *Allocator {
	allocator, err := New(slog.Default(), options)
	if err != nil {
		panic(errors.Wrap(err, "failed to create a process-wide allocator"))
	}
	return allocator
}

// Default returns the process-wide mutex-guarded best fit Allocator on heap.Default. It is
// created on first use and lives as long as the process.
func Default() *Allocator {
	defaultOnce.Do(func() {
		defaultAllocator = mustNew(CreateOptions{Heap: heap.Default()})
	})
	return defaultAllocator
}

// DefaultUnsynchronized returns the process-wide Allocator on heap.Default that takes no locks
// besides heap extension. First fit and best fit allocations made through it share one block
// chain. It must only be used from one goroutine at a time.
func DefaultUnsynchronized() *Allocator {
	unsynchronizedOnce.Do(func() {
		unsynchronizedAllocator = mustNew(CreateOptions{
			Flags: AllocatorCreateExternallySynchronized,
			Heap:  heap.Default(),
		})
	})
	return unsynchronizedAllocator
}

// AllocateFirstFit allocates from DefaultUnsynchronized using first fit
func AllocateFirstFit(size int) (Ptr, error) {
	return DefaultUnsynchronized().AllocateWithStrategy(size, metadata.AllocationStrategyFirstFit)
}

// AllocateBestFit allocates from DefaultUnsynchronized using best fit
func AllocateBestFit(size int) (Ptr, error) {
	return DefaultUnsynchronized().AllocateWithStrategy(size, metadata.AllocationStrategyBestFit)
}

// FreeUnsynchronized frees memory returned by AllocateFirstFit or AllocateBestFit
func FreeUnsynchronized(ptr Ptr) {
	DefaultUnsynchronized().Free(ptr)
}

// AllocateLocked allocates from Default
func AllocateLocked(size int) (Ptr, error) {
	return Default().Allocate(size)
}

// FreeLocked frees memory returned by AllocateLocked
func FreeLocked(ptr Ptr) {
	Default().Free(ptr)
}
