package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/brkheap/memutils"
)

// BlockCount returns the number of blocks in the chain, free or taken
func (l *BlockList) BlockCount() int { return l.blockCount }

// AllocationCount returns the number of taken blocks in the chain
func (l *BlockList) AllocationCount() int { return l.allocCount }

// IsEmpty returns true if no block in the chain is taken
func (l *BlockList) IsEmpty() bool { return l.allocCount == 0 }

// LargestFreeBlockSize scans the chain and returns the usable size of its largest free block,
// or 0 if it has none
func (l *BlockList) LargestFreeBlockSize() int {
	largest := 0
	for block := l.root; block != NoBlock; block = l.header(block).next() {
		h := l.header(block)
		if h.isFree() && h.size() > largest {
			largest = h.size()
		}
	}

	return largest
}

// SumFreeSize scans the chain and returns the total usable size of its free blocks. Headers
// are not counted.
func (l *BlockList) SumFreeSize() int {
	total := 0
	for block := l.root; block != NoBlock; block = l.header(block).next() {
		h := l.header(block)
		if h.isFree() {
			total += h.size()
		}
	}

	return total
}

// FreeRegionsCount scans the chain and returns the number of free blocks in it
func (l *BlockList) FreeRegionsCount() int {
	count := 0
	for block := l.root; block != NoBlock; block = l.header(block).next() {
		if l.header(block).isFree() {
			count++
		}
	}

	return count
}

// Contiguous reports whether every block in the chain starts exactly where the previous one
// ends. This holds for any chain that is the only consumer of its heap.
func (l *BlockList) Contiguous() bool {
	for block := l.root; block != NoBlock; block = l.header(block).next() {
		next := l.header(block).next()
		if next != NoBlock && !l.adjacent(block, next) {
			return false
		}
	}

	return true
}

// VisitAllRegions will call the provided callback once for each block in the chain, in address
// order. Iteration stops at the first error, which is returned.
func (l *BlockList) VisitAllRegions(handleBlock func(offset int, size int, free bool) error) error {
	for block := l.root; block != NoBlock; block = l.header(block).next() {
		h := l.header(block)
		err := handleBlock(block, h.size(), h.isFree())
		if err != nil {
			return err
		}
	}

	return nil
}

// AddStatistics sums this chain's statistics into the provided memutils.Statistics object
func (l *BlockList) AddStatistics(stats *memutils.Statistics) {
	for block := l.root; block != NoBlock; block = l.header(block).next() {
		h := l.header(block)
		stats.BlockCount++
		stats.BlockBytes += HeaderSize + h.size()
		if !h.isFree() {
			stats.AllocationCount++
			stats.AllocationBytes += h.size()
		}
	}
}

// AddDetailedStatistics sums this chain's statistics into the provided memutils.DetailedStatistics
// object
func (l *BlockList) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	for block := l.root; block != NoBlock; block = l.header(block).next() {
		h := l.header(block)
		stats.BlockCount++
		stats.BlockBytes += HeaderSize + h.size()
		if h.isFree() {
			stats.AddUnusedRange(h.size())
		} else {
			stats.AddAllocation(h.size())
		}
	}
}

// BlockJsonData populates a json object with summary information about this chain followed by
// one entry per block
func (l *BlockList) BlockJsonData(json jwriter.ObjectState) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	l.AddDetailedStatistics(&stats)

	json.Name("TotalBytes").Int(stats.BlockBytes)
	json.Name("UnusedBytes").Int(stats.UnusedBytes)
	json.Name("Blocks").Int(stats.BlockCount)
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("UnusedRanges").Int(stats.UnusedRangeCount)

	arrayState := json.Name("Suballocations").Array()
	defer arrayState.End()

	_ = l.VisitAllRegions(func(offset int, size int, free bool) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Offset").Int(offset)
		if free {
			obj.Name("Type").String("FREE")
		} else {
			obj.Name("Type").String("TAKEN")
		}
		obj.Name("Size").Int(size)

		return nil
	})
}

// Validate performs internal consistency checks on the chain: links must be symmetric, blocks
// must be in increasing address order without overlapping, no two physically adjacent blocks
// may both be free, every block must lie below the heap break, and the counters must match
// the blocks actually present.
func (l *BlockList) Validate() error {
	if l.root == NoBlock {
		if l.blockCount != 0 || l.allocCount != 0 {
			return errors.Errorf("the chain is empty, but it counts %d blocks and %d allocations", l.blockCount, l.allocCount)
		}
		return nil
	}

	if l.header(l.root).prev() != NoBlock {
		return errors.Errorf("the root block at offset %d has a previous block", l.root)
	}

	brk := l.heap.Break()
	var blockCount, allocCount int

	for block := l.root; block != NoBlock; block = l.header(block).next() {
		h := l.header(block)
		end := l.blockEnd(block)

		if end > brk {
			return errors.Errorf("block at offset %d ends at %d, which is past the heap break at %d", block, end, brk)
		}

		blockCount++
		if !h.isFree() {
			allocCount++
		}

		next := h.next()
		if next == NoBlock {
			continue
		}

		if l.header(next).prev() != block {
			return errors.Errorf("block at offset %d lists the block at offset %d as its next block, but the reverse reference is broken", block, next)
		}

		if next < end {
			return errors.Errorf("block at offset %d ends at %d, but the next block starts at offset %d", block, end, next)
		}

		if next == end && h.isFree() && l.header(next).isFree() {
			return errors.Errorf("adjacent blocks at offsets %d and %d are both free", block, next)
		}
	}

	if blockCount != l.blockCount {
		return errors.Errorf("the block count of the chain is %d, but there were %d blocks", l.blockCount, blockCount)
	}

	if allocCount != l.allocCount {
		return errors.Errorf("the allocation count of the chain is %d, but the taken blocks only added up to %d", l.allocCount, allocCount)
	}

	return nil
}
