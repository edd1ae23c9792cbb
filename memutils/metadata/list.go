// Package metadata implements the block chain that allocators in this module keep inside heap
// memory. Every block begins with a HeaderSize-byte header followed by its payload, and the
// headers link the blocks into an address-ordered doubly linked list. The list supports first-
// and best-fit search, splitting oversized free blocks on allocation, and eager coalescing of
// adjacent free blocks on release.
//
// A BlockList is not safe for concurrent use; synchronization is the consumer's job.
package metadata

import (
	"math"

	"github.com/pkg/errors"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/memutils"
)

// BlockList is a chain of blocks living in a heap. The chain is created empty and gains its
// root the first time it is extended. Blocks are only ever added by extending the heap or by
// splitting, and only ever removed by being merged into their predecessor.
type BlockList struct {
	heap *heap.Heap

	root       int
	blockCount int
	allocCount int
}

var _ memutils.Validatable = &BlockList{}

// NewBlockList creates an empty chain that will extend the provided heap when it needs memory
func NewBlockList(h *heap.Heap) *BlockList {
	return &BlockList{
		heap: h,
		root: NoBlock,
	}
}

// Root returns the offset of the first block in the chain, or NoBlock if the chain is empty
func (l *BlockList) Root() int { return l.root }

// Heap returns the heap that this chain extends
func (l *BlockList) Heap() *heap.Heap { return l.heap }

// Next returns the offset of the block after the provided block, or NoBlock
func (l *BlockList) Next(block int) int { return l.header(block).next() }

// Prev returns the offset of the block before the provided block, or NoBlock
func (l *BlockList) Prev(block int) int { return l.header(block).prev() }

// BlockSize returns the usable payload size of the provided block
func (l *BlockList) BlockSize(block int) int { return l.header(block).size() }

// IsFree reports whether the provided block is free
func (l *BlockList) IsFree(block int) bool { return l.header(block).isFree() }

// Payload returns the payload bytes of the provided block
func (l *BlockList) Payload(block int) []byte {
	return l.heap.Bytes(PayloadOffset(block), l.header(block).size())
}

// Extend advances the heap break by HeaderSize+size bytes and formats the new memory as a
// single taken block of the provided size. If last is not NoBlock, the new block is linked
// after it, and last must be the tail of the chain. If the heap is exhausted, the error is
// returned and the chain is left untouched.
func (l *BlockList) Extend(last int, size int) (int, error) {
	block, err := l.heap.Sbrk(HeaderSize + size)
	if err != nil {
		return NoBlock, err
	}

	h := l.header(block)
	h.init(size, false)

	if last != NoBlock {
		h.setPrev(last)
		l.header(last).setNext(block)
	} else {
		l.root = block
	}

	l.blockCount++
	l.allocCount++

	return block, nil
}

// FindFit searches the chain for a free block with at least size usable bytes, using the
// provided strategy. It returns the chosen block, or NoBlock if none qualifies, along with the
// last block visited. When nothing fits, the last block visited is the tail of the chain.
func (l *BlockList) FindFit(strategy AllocationStrategy, size int) (fit int, last int) {
	fit = NoBlock
	last = NoBlock
	bestLeftover := math.MaxInt

	for block := l.root; block != NoBlock; block = l.header(block).next() {
		last = block

		h := l.header(block)
		if !h.isFree() || h.size() < size {
			continue
		}

		leftover := h.size() - size
		if strategy == AllocationStrategyFirstFit || leftover == 0 {
			return block, last
		}

		// Strictly less, so the earliest block wins a tie
		if leftover < bestLeftover {
			fit = block
			bestLeftover = leftover
		}
	}

	return fit, last
}

// CreateAllocationRequest retrieves an AllocationRequest indicating where the list would place an
// allocation of the provided size. Size should already be aligned by the consumer.
func (l *BlockList) CreateAllocationRequest(size int, strategy AllocationStrategy) (AllocationRequest, error) {
	var request AllocationRequest

	if size < 1 {
		return request, errors.Errorf("invalid allocation size: %d", size)
	}

	fit, last := l.FindFit(strategy, size)

	request.Size = size
	request.Block = fit
	request.Last = last
	request.Type = AllocationRequestFit
	if fit == NoBlock {
		request.Type = AllocationRequestExtend
	}

	return request, nil
}

// Alloc commits an AllocationRequest and returns the offset of the taken block. A fit request
// takes the chosen free block, first splitting its tail off into a new free block if the
// leftover is larger than a header. An extend request grows the heap, and fails without
// changing anything if the heap is exhausted.
func (l *BlockList) Alloc(request AllocationRequest) (int, error) {
	switch request.Type {
	case AllocationRequestExtend:
		block, err := l.Extend(request.Last, request.Size)
		if err != nil {
			return NoBlock, err
		}

		memutils.DebugValidate(l)
		return block, nil
	case AllocationRequestFit:
		h := l.header(request.Block)
		if !h.isFree() {
			return NoBlock, errors.Errorf("the block at offset %d was requested for allocation, but it is not free", request.Block)
		}
		if h.size() < request.Size {
			return NoBlock, errors.Errorf("the block at offset %d has %d bytes, which is too small for the requested %d bytes", request.Block, h.size(), request.Size)
		}

		if h.size()-request.Size > HeaderSize {
			l.split(request.Block, request.Size)
		}
		h.setFree(false)
		l.allocCount++

		memutils.DebugValidate(l)
		return request.Block, nil
	}

	return NoBlock, errors.Errorf("unknown allocation request type: %s", request.Type.String())
}

// split shrinks the block to size bytes and writes a new free block covering the remainder
// directly after it
func (l *BlockList) split(block int, size int) {
	h := l.header(block)

	remainder := PayloadOffset(block) + size
	r := l.header(remainder)
	r.init(h.size()-size-HeaderSize, true)

	next := h.next()
	r.setNext(next)
	if next != NoBlock {
		l.header(next).setPrev(remainder)
	}
	r.setPrev(block)

	h.setNext(remainder)
	h.setSize(size)

	l.blockCount++
}

// Free marks the provided block as free and coalesces it with its successor and then its
// predecessor, whichever of those are free and physically adjacent. Freeing a block that is
// not taken corrupts the chain.
func (l *BlockList) Free(block int) {
	h := l.header(block)
	h.setFree(true)
	l.allocCount--

	next := h.next()
	if next != NoBlock && l.header(next).isFree() && l.adjacent(block, next) {
		l.absorbNext(block)
	}

	prev := h.prev()
	if prev != NoBlock && l.header(prev).isFree() && l.adjacent(prev, block) {
		l.absorbNext(prev)
	}

	memutils.DebugValidate(l)
}

// absorbNext folds the block after the provided block into it
func (l *BlockList) absorbNext(block int) {
	h := l.header(block)
	absorbed := l.header(h.next())

	h.setSize(h.size() + HeaderSize + absorbed.size())

	next := absorbed.next()
	h.setNext(next)
	if next != NoBlock {
		l.header(next).setPrev(block)
	}

	l.blockCount--
}
