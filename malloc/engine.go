package malloc

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Ptr is the address of an allocation's payload, expressed as a byte offset into the heap it
// was allocated from
type Ptr int

// Nil is the null Ptr. It is never the address of a payload, since every payload follows a
// block header.
const Nil Ptr = 0

// ErrInvalidSize is returned when an allocation of zero or fewer bytes is requested
var ErrInvalidSize = errors.New("allocation size must be positive")

// engine carries the allocate/free state machine shared by every allocator variant. It owns a
// single block chain and does no synchronization of its own.
type engine struct {
	logger *slog.Logger
	blocks *metadata.BlockList
}

func (e *engine) init(logger *slog.Logger, h *heap.Heap) {
	if e.blocks != nil {
		panic("attempting to initialize an allocator that is already in use")
	}

	e.logger = logger
	e.blocks = metadata.NewBlockList(h)
}

func (e *engine) allocate(size int, strategy metadata.AllocationStrategy) (Ptr, error) {
	if size <= 0 {
		return Nil, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}

	if size > e.blocks.Heap().Capacity() {
		return Nil, errors.Wrapf(heap.ErrOutOfMemory, "requested %d bytes from a heap of %d bytes", size, e.blocks.Heap().Capacity())
	}

	alignedSize := memutils.AlignSize(size)

	request, err := e.blocks.CreateAllocationRequest(alignedSize, strategy)
	if err != nil {
		return Nil, err
	}

	if request.Type == metadata.AllocationRequestExtend {
		e.logger.Debug("Allocator::allocate extending heap",
			slog.Int("Size", alignedSize),
			slog.String("Strategy", strategy.String()),
		)
	}

	block, err := e.blocks.Alloc(request)
	if err != nil {
		return Nil, errors.Wrapf(err, "failed to allocate %d bytes", size)
	}

	return Ptr(metadata.PayloadOffset(block)), nil
}

func (e *engine) free(ptr Ptr) {
	if ptr == Nil {
		return
	}

	e.blocks.Free(metadata.BlockOffset(int(ptr)))
}

func (e *engine) bytes(ptr Ptr) []byte {
	if ptr == Nil {
		return nil
	}

	return e.blocks.Payload(metadata.BlockOffset(int(ptr)))
}

func (e *engine) usableSize(ptr Ptr) int {
	if ptr == Nil {
		return 0
	}

	return e.blocks.BlockSize(metadata.BlockOffset(int(ptr)))
}

func (e *engine) calculateStatistics(stats *memutils.DetailedStatistics) {
	stats.Clear()
	e.blocks.AddDetailedStatistics(stats)
}

func (e *engine) buildStatsString(detailedMap bool) string {
	var stats memutils.DetailedStatistics
	e.calculateStatistics(&stats)

	writer := jwriter.NewWriter()
	json := writer.Object()

	heapObj := json.Name("Heap").Object()
	heapObj.Name("Break").Int(e.blocks.Heap().Break())
	heapObj.Name("Capacity").Int(e.blocks.Heap().Capacity())
	heapObj.End()

	totalObj := json.Name("Total").Object()
	printDetailedStatistics(totalObj, &stats)
	totalObj.End()

	if detailedMap {
		mapObj := json.Name("DetailedMap").Object()
		e.blocks.BlockJsonData(mapObj)
		mapObj.End()
	}

	json.End()

	return string(writer.Bytes())
}

func printDetailedStatistics(json jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("BlockBytes").Int(stats.BlockBytes)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("UnusedRangeCount").Int(stats.UnusedRangeCount)
	json.Name("UnusedBytes").Int(stats.UnusedBytes)

	if stats.AllocationCount > 0 {
		sizes := json.Name("AllocationSizes").Object()
		sizes.Name("Min").Int(stats.AllocationSizeMin)
		sizes.Name("Max").Int(stats.AllocationSizeMax)
		sizes.End()
	}

	if stats.UnusedRangeCount > 0 {
		sizes := json.Name("UnusedRangeSizes").Object()
		sizes.Name("Min").Int(stats.UnusedRangeSizeMin)
		sizes.Name("Max").Int(stats.UnusedRangeSizeMax)
		sizes.End()
	}
}
