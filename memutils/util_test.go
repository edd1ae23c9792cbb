package memutils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap/memutils"
)

func TestAlignSize(t *testing.T) {
	require.Equal(t, 4, memutils.AlignSize(1))
	require.Equal(t, 4, memutils.AlignSize(3))
	require.Equal(t, 4, memutils.AlignSize(4))
	require.Equal(t, 8, memutils.AlignSize(5))
	require.Equal(t, 8, memutils.AlignSize(8))
	require.Equal(t, 1028, memutils.AlignSize(1025))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 0, memutils.AlignDown(3, 4))
	require.Equal(t, 32, memutils.AlignDown(47, 16))
	require.Equal(t, 48, memutils.AlignDown(48, 16))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(uint(4), "alignment"))
	require.NoError(t, memutils.CheckPow2(64, "alignment"))

	err := memutils.CheckPow2(12, "alignment")
	require.Error(t, err)
	require.ErrorIs(t, err, memutils.PowerOfTwoError)
	require.Contains(t, err.Error(), "alignment is 12")
}

func TestDetailedStatistics(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	require.Equal(t, math.MaxInt, stats.AllocationSizeMin)
	require.Equal(t, math.MaxInt, stats.UnusedRangeSizeMin)

	stats.AddAllocation(16)
	stats.AddAllocation(64)
	stats.AddUnusedRange(8)
	stats.AddUnusedRange(200)

	var other memutils.DetailedStatistics
	other.Clear()
	other.BlockCount = 1
	other.BlockBytes = 36
	other.AddAllocation(4)

	stats.AddDetailedStatistics(&other)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      1,
			BlockBytes:      36,
			AllocationCount: 3,
			AllocationBytes: 84,
		},
		UnusedRangeCount:   2,
		UnusedBytes:        208,
		AllocationSizeMin:  4,
		AllocationSizeMax:  64,
		UnusedRangeSizeMin: 8,
		UnusedRangeSizeMax: 200,
	}, stats)
}
