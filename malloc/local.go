package malloc

import (
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

// LocalArenaCreateOptions contains optional settings when creating a LocalArena
type LocalArenaCreateOptions struct {
	// Heap is the heap the arena will extend. If it is nil, the process-wide heap from
	// heap.Default is used.
	Heap *heap.Heap
}

// LocalArena is a private best fit allocator meant to be owned by a single goroutine. Each
// arena keeps its own block chain, so searching, splitting and merging take no locks at all.
// Only heap extension is synchronized, because the break is shared by every arena on the heap.
//
// Blocks from different arenas on the same heap are interleaved in memory but never merged,
// and memory freed in one arena is never reused by another. Statistics only describe the
// arena they are called on.
type LocalArena struct {
	engine
}

// NewLocalArena creates an arena with an empty block chain. Nothing is taken from the heap
// until the first allocation.
func NewLocalArena(logger *slog.Logger, options LocalArenaCreateOptions) *LocalArena {
	h := options.Heap
	if h == nil {
		h = heap.Default()
	}

	arena := &LocalArena{}
	arena.engine.init(logger, h)

	logger.Debug("LocalArena::New")

	return arena
}

// Allocate reserves at least size bytes and returns the address of the payload, following the
// same rules as Allocator.Allocate
func (a *LocalArena) Allocate(size int) (Ptr, error) {
	return a.allocate(size, metadata.AllocationStrategyBestFit)
}

// Free releases an allocation made from this arena. Freeing Nil does nothing. Freeing a Ptr that
// came from a different arena corrupts both arenas.
func (a *LocalArena) Free(ptr Ptr) {
	a.free(ptr)
}

// Bytes returns the payload of a live allocation made from this arena
func (a *LocalArena) Bytes(ptr Ptr) []byte {
	return a.bytes(ptr)
}

// UsableSize returns the number of bytes reserved for a live allocation made from this arena
func (a *LocalArena) UsableSize(ptr Ptr) int {
	return a.usableSize(ptr)
}

// LargestFreeBlockSize returns the usable size of the largest free block in this arena
func (a *LocalArena) LargestFreeBlockSize() int {
	return a.blocks.LargestFreeBlockSize()
}

// TotalFreeSize returns the combined usable size of every free block in this arena
func (a *LocalArena) TotalFreeSize() int {
	return a.blocks.SumFreeSize()
}

// CalculateStatistics clears the provided statistics and fills them from this arena's chain
func (a *LocalArena) CalculateStatistics(stats *memutils.DetailedStatistics) {
	a.calculateStatistics(stats)
}

// BuildStatsString returns a JSON document describing this arena's usage
func (a *LocalArena) BuildStatsString(detailedMap bool) string {
	return a.buildStatsString(detailedMap)
}

// Validate checks this arena's block chain for consistency
func (a *LocalArena) Validate() error {
	return a.blocks.Validate()
}

// Heap returns the heap that this arena extends
func (a *LocalArena) Heap() *heap.Heap {
	return a.blocks.Heap()
}
