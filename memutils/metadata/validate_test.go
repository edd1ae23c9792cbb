package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap/heap"
	"golang.org/x/exp/slog"
)

func newCorruptibleList(t *testing.T) (*BlockList, []int) {
	h, err := heap.New(slog.Default(), heap.CreateOptions{Capacity: 1024})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, h.Destroy())
	})

	list := NewBlockList(h)
	var blocks []int
	last := NoBlock
	for _, size := range []int{16, 8, 24} {
		last, err = list.Extend(last, size)
		require.NoError(t, err)
		blocks = append(blocks, last)
	}
	require.NoError(t, list.Validate())

	return list, blocks
}

func TestValidateAdjacentFreeBlocks(t *testing.T) {
	list, blocks := newCorruptibleList(t)

	list.header(blocks[0]).setFree(true)
	list.header(blocks[1]).setFree(true)
	list.allocCount -= 2

	require.ErrorContains(t, list.Validate(), "are both free")
}

func TestValidateBrokenBackLink(t *testing.T) {
	list, blocks := newCorruptibleList(t)

	list.header(blocks[2]).setPrev(blocks[0])

	require.ErrorContains(t, list.Validate(), "reverse reference is broken")
}

func TestValidateOverlap(t *testing.T) {
	list, blocks := newCorruptibleList(t)

	list.header(blocks[0]).setSize(40)

	require.ErrorContains(t, list.Validate(), "but the next block starts")
}

func TestValidatePastBreak(t *testing.T) {
	list, blocks := newCorruptibleList(t)

	list.header(blocks[2]).setSize(512)

	require.ErrorContains(t, list.Validate(), "past the heap break")
}

func TestValidateCounters(t *testing.T) {
	list, _ := newCorruptibleList(t)

	list.blockCount++
	require.ErrorContains(t, list.Validate(), "block count")

	list.blockCount--
	list.allocCount--
	require.ErrorContains(t, list.Validate(), "allocation count")
}

func TestHeaderRoundTrip(t *testing.T) {
	list, blocks := newCorruptibleList(t)

	h := list.header(blocks[1])
	require.Equal(t, 8, h.size())
	require.Equal(t, blocks[0], h.prev())
	require.Equal(t, blocks[2], h.next())
	require.False(t, h.isFree())

	require.Equal(t, NoBlock, list.header(blocks[0]).prev())
	require.Equal(t, NoBlock, list.header(blocks[2]).next())
}
