package malloc

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/memutils"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
)

func arenaBlocks(arena *LocalArena) map[int]bool {
	blocks := make(map[int]bool)
	_ = arena.blocks.VisitAllRegions(func(offset int, size int, free bool) error {
		blocks[offset] = true
		return nil
	})
	return blocks
}

func TestLocalArenaBasics(t *testing.T) {
	arena := NewLocalArena(testLogger(), LocalArenaCreateOptions{Heap: newTestHeap(t, 1<<16)})

	ptr, err := arena.Allocate(5)
	require.NoError(t, err)
	require.Equal(t, 8, arena.UsableSize(ptr))
	require.Len(t, arena.Bytes(ptr), 8)

	_, err = arena.Allocate(0)
	require.True(t, errors.Is(err, ErrInvalidSize))

	brk := arena.Heap().Break()
	arena.Free(ptr)
	arena.Free(Nil)
	require.Equal(t, 8, arena.TotalFreeSize())
	require.Equal(t, 8, arena.LargestFreeBlockSize())

	again, err := arena.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, ptr, again)
	require.Equal(t, brk, arena.Heap().Break())
	require.NoError(t, arena.Validate())
}

func TestLocalArenasDoNotShareBlocks(t *testing.T) {
	h := newTestHeap(t, 1<<22)

	first := NewLocalArena(testLogger(), LocalArenaCreateOptions{Heap: h})
	second := NewLocalArena(testLogger(), LocalArenaCreateOptions{Heap: h})

	// Interleave the two chains in the heap
	var firstPtrs, secondPtrs []Ptr
	for i := 0; i < 4; i++ {
		ptr, err := first.Allocate(64)
		require.NoError(t, err)
		firstPtrs = append(firstPtrs, ptr)

		ptr, err = second.Allocate(64)
		require.NoError(t, err)
		secondPtrs = append(secondPtrs, ptr)
	}

	for _, ptr := range firstPtrs {
		first.Free(ptr)
	}

	// Physically separated blocks are not merged
	require.Equal(t, 4, first.blocks.BlockCount())
	require.Equal(t, 64, first.LargestFreeBlockSize())
	require.Equal(t, 4*64, first.TotalFreeSize())
	require.False(t, first.blocks.Contiguous())
	require.NoError(t, first.Validate())

	// The second arena never sees memory the first one freed
	require.Equal(t, 0, second.TotalFreeSize())
	brk := h.Break()
	ptr, err := second.Allocate(64)
	require.NoError(t, err)
	require.Equal(t, brk+metadata.HeaderSize, int(ptr))

	for _, ptr := range secondPtrs {
		second.Free(ptr)
	}
	require.NoError(t, second.Validate())

	firstBlocks := arenaBlocks(first)
	for block := range arenaBlocks(second) {
		require.False(t, firstBlocks[block])
	}
}

func TestLocalArenasConcurrent(t *testing.T) {
	h := newTestHeap(t, 1<<24)

	const goroutines = 8
	arenas := make([]*LocalArena, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		arenas[i] = NewLocalArena(testLogger(), LocalArenaCreateOptions{Heap: h})

		wg.Add(1)
		go func(id int, arena *LocalArena) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(id)))
			var live []Ptr

			for j := 0; j < 1000; j++ {
				if len(live) > 0 && rng.Intn(2) == 0 {
					index := rng.Intn(len(live))
					ptr := live[index]
					live[index] = live[len(live)-1]
					live = live[:len(live)-1]

					for _, b := range arena.Bytes(ptr) {
						if !assert.Equal(t, byte(id), b) {
							return
						}
					}
					arena.Free(ptr)
				} else {
					ptr, err := arena.Allocate(1 + rng.Intn(256))
					if !assert.NoError(t, err) {
						return
					}

					payload := arena.Bytes(ptr)
					for k := range payload {
						payload[k] = byte(id)
					}
					live = append(live, ptr)
				}

				// Free space can only come from this arena's own blocks
				var stats memutils.DetailedStatistics
				arena.CalculateStatistics(&stats)
				assert.LessOrEqual(t, arena.LargestFreeBlockSize(), stats.BlockBytes)
				assert.Equal(t, len(live), stats.AllocationCount)
			}

			assert.NoError(t, arena.Validate())
		}(i, arenas[i])
	}
	wg.Wait()

	seen := make(map[int]int)
	for i, arena := range arenas {
		require.NoError(t, arena.Validate())
		for block := range arenaBlocks(arena) {
			owner, ok := seen[block]
			require.False(t, ok, "block %d belongs to arenas %d and %d", block, owner, i)
			seen[block] = i
		}
	}

	// Every block in the heap belongs to exactly one arena
	total := 0
	for _, arena := range arenas {
		var stats memutils.DetailedStatistics
		arena.CalculateStatistics(&stats)
		total += stats.BlockBytes
	}
	require.Equal(t, h.Break(), total)
}

func TestLocalArenaExhaustion(t *testing.T) {
	h := newTestHeap(t, 128)
	arena := NewLocalArena(testLogger(), LocalArenaCreateOptions{Heap: h})

	_, err := arena.Allocate(64)
	require.NoError(t, err)

	ptr, err := arena.Allocate(64)
	require.Equal(t, Nil, ptr)
	require.True(t, errors.Is(err, heap.ErrOutOfMemory))
	require.Equal(t, 1, arena.blocks.BlockCount())
	require.Equal(t, metadata.HeaderSize+64, h.Break())
	require.NoError(t, arena.Validate())
}
