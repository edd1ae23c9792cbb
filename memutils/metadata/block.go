package metadata

import (
	"encoding/binary"
	"math"
)

const (
	// HeaderSize is the number of bytes every block's header occupies directly before its payload
	HeaderSize = 32

	// NoBlock stands in for a missing block offset: an empty chain's root, the prev link of the
	// first block, or the next link of the last one
	NoBlock = -1

	headerSizeOffset  = 0
	headerPrevOffset  = 8
	headerNextOffset  = 16
	headerFlagsOffset = 24

	flagFree uint32 = 1

	noLink uint64 = math.MaxUint64
)

// A header is a view of HeaderSize bytes of heap memory holding one block's metadata:
//
//	[0:8)   payload size
//	[8:16)  previous block offset
//	[16:24) next block offset
//	[24:28) flags
//	[28:32) reserved
type header []byte

func (l *BlockList) header(block int) header {
	return header(l.heap.Bytes(block, HeaderSize))
}

func (h header) size() int {
	return int(binary.LittleEndian.Uint64(h[headerSizeOffset:]))
}

func (h header) setSize(size int) {
	binary.LittleEndian.PutUint64(h[headerSizeOffset:], uint64(size))
}

func (h header) prev() int {
	return decodeLink(binary.LittleEndian.Uint64(h[headerPrevOffset:]))
}

func (h header) setPrev(block int) {
	binary.LittleEndian.PutUint64(h[headerPrevOffset:], encodeLink(block))
}

func (h header) next() int {
	return decodeLink(binary.LittleEndian.Uint64(h[headerNextOffset:]))
}

func (h header) setNext(block int) {
	binary.LittleEndian.PutUint64(h[headerNextOffset:], encodeLink(block))
}

func (h header) isFree() bool {
	return binary.LittleEndian.Uint32(h[headerFlagsOffset:])&flagFree != 0
}

func (h header) setFree(free bool) {
	var flags uint32
	if free {
		flags = flagFree
	}
	binary.LittleEndian.PutUint32(h[headerFlagsOffset:], flags)
}

func (h header) init(size int, free bool) {
	h.setSize(size)
	h.setPrev(NoBlock)
	h.setNext(NoBlock)
	h.setFree(free)
	binary.LittleEndian.PutUint32(h[headerFlagsOffset+4:], 0)
}

func encodeLink(block int) uint64 {
	if block == NoBlock {
		return noLink
	}
	return uint64(block)
}

func decodeLink(link uint64) int {
	if link == noLink {
		return NoBlock
	}
	return int(link)
}

// PayloadOffset returns the heap offset of the payload belonging to the block at the provided offset
func PayloadOffset(block int) int {
	return block + HeaderSize
}

// BlockOffset recovers a block's header offset from the heap offset of its payload
func BlockOffset(payload int) int {
	return payload - HeaderSize
}

// blockEnd is the offset of the first byte after the block's payload
func (l *BlockList) blockEnd(block int) int {
	return block + HeaderSize + l.header(block).size()
}

// adjacent reports whether second starts exactly where first ends. Chains that own every
// block between their root and the break are always adjacent from one block to the next,
// while private arenas can have other arenas' blocks in between.
func (l *BlockList) adjacent(first, second int) bool {
	return l.blockEnd(first) == second
}
