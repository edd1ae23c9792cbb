package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/malloc"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

func TestRunWorkloadDrains(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout))

	h, err := heap.New(logger, heap.CreateOptions{Capacity: 1 << 22})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, h.Destroy())
	}()

	allocator, err := malloc.New(logger, malloc.CreateOptions{
		Flags:    malloc.AllocatorCreateExternallySynchronized,
		Strategy: metadata.AllocationStrategyFirstFit,
		Heap:     h,
	})
	require.NoError(t, err)

	result, err := runWorkload(allocator, workloadOptions{
		Operations:  5000,
		MaxSize:     300,
		FreePercent: 40,
		Seed:        7,
		Drain:       true,
	})
	require.NoError(t, err)
	require.Equal(t, result.Allocations, result.Frees)
	require.Equal(t, 0, result.OutOfMemory)
	require.Greater(t, result.PeakLive, 0)

	require.Equal(t, h.Break()-metadata.HeaderSize, allocator.TotalFreeSize())
}

func TestRunWorkloadCountsExhaustion(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout))

	h, err := heap.New(logger, heap.CreateOptions{Capacity: 4096})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, h.Destroy())
	}()

	arena := malloc.NewLocalArena(logger, malloc.LocalArenaCreateOptions{Heap: h})

	result, err := runWorkload(arena, workloadOptions{
		Operations:  200,
		MaxSize:     256,
		FreePercent: 0,
		Seed:        3,
	})
	require.NoError(t, err)
	require.Greater(t, result.OutOfMemory, 0)
	require.Equal(t, 0, result.Frees)
	require.Equal(t, result.Allocations, result.PeakLive)
}

func TestParseStrategy(t *testing.T) {
	strategy, err := parseStrategy("first")
	require.NoError(t, err)
	require.Equal(t, metadata.AllocationStrategyFirstFit, strategy)

	strategy, err = parseStrategy("best")
	require.NoError(t, err)
	require.Equal(t, metadata.AllocationStrategyBestFit, strategy)

	_, err = parseStrategy("worst")
	require.Error(t, err)
}
