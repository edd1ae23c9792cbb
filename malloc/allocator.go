package malloc

import (
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/internal/utils"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
)

// Allocator manages a single block chain on behalf of the whole process. By default every
// operation runs under one mutex; heap extension additionally goes through the heap's own
// lock, which is always the innermost. With AllocatorCreateExternallySynchronized nothing is
// locked except heap extension, and the consumer must not call into the Allocator from more
// than one goroutine at a time.
type Allocator struct {
	engine

	mutex       utils.OptionalRWMutex
	strategy    metadata.AllocationStrategy
	createFlags CreateFlags
}

// Allocate reserves at least size bytes and returns the address of the payload. The size is
// rounded up to a multiple of 4. A size of zero or less returns Nil and ErrInvalidSize without
// touching the heap. If no free block fits and the heap can't be extended, Nil is returned
// along with an error wrapping heap.ErrOutOfMemory, and the allocator is left as it was.
func (a *Allocator) Allocate(size int) (Ptr, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.allocate(size, a.strategy)
}

// AllocateWithStrategy behaves like Allocate, but selects the free block with the provided
// strategy instead of the one the Allocator was created with. First fit is only available on
// externally synchronized allocators.
func (a *Allocator) AllocateWithStrategy(size int, strategy metadata.AllocationStrategy) (Ptr, error) {
	err := checkStrategy(strategy, a.mutex.UseMutex)
	if err != nil {
		return Nil, err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.allocate(size, strategy)
}

// Free releases an allocation so its memory can be reused, merging it with any free blocks on
// either side. Freeing Nil does nothing. Freeing anything that was not returned by this
// Allocator, or freeing the same Ptr twice, corrupts the allocator.
func (a *Allocator) Free(ptr Ptr) {
	if ptr == Nil {
		return
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.free(ptr)
}

// Bytes returns the payload of a live allocation. Its length is the allocation's usable size,
// which may exceed the size that was requested. The slice must not be used after the
// allocation is freed.
func (a *Allocator) Bytes(ptr Ptr) []byte {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.bytes(ptr)
}

// UsableSize returns the number of bytes reserved for a live allocation
func (a *Allocator) UsableSize(ptr Ptr) int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.usableSize(ptr)
}

// LargestFreeBlockSize returns the usable size of the largest free block in the chain
func (a *Allocator) LargestFreeBlockSize() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.blocks.LargestFreeBlockSize()
}

// TotalFreeSize returns the combined usable size of every free block in the chain, excluding headers
func (a *Allocator) TotalFreeSize() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.blocks.SumFreeSize()
}

// CalculateStatistics clears the provided statistics and fills them from the chain
func (a *Allocator) CalculateStatistics(stats *memutils.DetailedStatistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	a.calculateStatistics(stats)
}

// BuildStatsString returns a JSON document describing the allocator's heap usage. If detailedMap
// is true, every block in the chain is listed as well.
func (a *Allocator) BuildStatsString(detailedMap bool) string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.buildStatsString(detailedMap)
}

// Validate checks the block chain for consistency. An error means the chain has been corrupted,
// most likely by freeing an invalid pointer.
func (a *Allocator) Validate() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.blocks.Validate()
}

// Heap returns the heap that this Allocator extends
func (a *Allocator) Heap() *heap.Heap {
	return a.blocks.Heap()
}

// Flags returns the flags the Allocator was created with
func (a *Allocator) Flags() CreateFlags {
	return a.createFlags
}
