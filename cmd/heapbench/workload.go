package main

import (
	"math/rand"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/malloc"
)

// target is the surface shared by malloc.Allocator and malloc.LocalArena
type target interface {
	Allocate(size int) (malloc.Ptr, error)
	Free(ptr malloc.Ptr)
	Bytes(ptr malloc.Ptr) []byte
	BuildStatsString(detailedMap bool) string
	Validate() error
}

type workloadOptions struct {
	Operations  int
	MaxSize     int
	FreePercent int
	Seed        int64
	// Drain frees every live allocation once the operations are done
	Drain bool
}

type workloadResult struct {
	Allocations  int
	Frees        int
	OutOfMemory  int
	PeakLive     int
	PeakLiveSize int
}

func (r *workloadResult) add(other workloadResult) {
	r.Allocations += other.Allocations
	r.Frees += other.Frees
	r.OutOfMemory += other.OutOfMemory
	r.PeakLive += other.PeakLive
	r.PeakLiveSize += other.PeakLiveSize
}

type liveAllocation struct {
	ptr  malloc.Ptr
	size int
}

// runWorkload performs a random sequence of allocations and frees against the target. Live
// allocations are tracked by handle so a free can pick any of them; a handle that has already
// been freed turns the step into an allocation instead.
func runWorkload(t target, options workloadOptions) (workloadResult, error) {
	var result workloadResult

	rng := rand.New(rand.NewSource(options.Seed))
	live := swiss.NewMap[int, liveAllocation](64)
	nextHandle := 0
	liveSize := 0

	for i := 0; i < options.Operations; i++ {
		if nextHandle > 0 && rng.Intn(100) < options.FreePercent {
			handle := rng.Intn(nextHandle)
			allocation, ok := live.Get(handle)
			if ok {
				err := checkPattern(t.Bytes(allocation.ptr), handle)
				if err != nil {
					return result, err
				}

				t.Free(allocation.ptr)
				live.Delete(handle)
				liveSize -= allocation.size
				result.Frees++
				continue
			}
		}

		size := 1 + rng.Intn(options.MaxSize)
		ptr, err := t.Allocate(size)
		if errors.Is(err, heap.ErrOutOfMemory) {
			result.OutOfMemory++
			continue
		} else if err != nil {
			return result, err
		}

		fillPattern(t.Bytes(ptr), nextHandle)
		live.Put(nextHandle, liveAllocation{ptr: ptr, size: size})
		nextHandle++
		liveSize += size
		result.Allocations++

		if live.Count() > result.PeakLive {
			result.PeakLive = live.Count()
		}
		if liveSize > result.PeakLiveSize {
			result.PeakLiveSize = liveSize
		}
	}

	if options.Drain {
		var remaining []liveAllocation
		live.Iter(func(handle int, allocation liveAllocation) bool {
			remaining = append(remaining, allocation)
			return false
		})

		for _, allocation := range remaining {
			t.Free(allocation.ptr)
			result.Frees++
		}
	}

	return result, t.Validate()
}

func fillPattern(payload []byte, handle int) {
	for i := range payload {
		payload[i] = byte(handle + i)
	}
}

func checkPattern(payload []byte, handle int) error {
	for i, b := range payload {
		if b != byte(handle+i) {
			return errors.Newf("allocation %d was overwritten at byte %d", handle, i)
		}
	}

	return nil
}
