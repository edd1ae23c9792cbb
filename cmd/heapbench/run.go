package main

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap/heap"
	"github.com/vkngwrapper/brkheap/malloc"
	"github.com/vkngwrapper/brkheap/memutils/metadata"
	"golang.org/x/exp/slog"
)

var (
	runVariant     string
	runStrategy    string
	runOperations  int
	runGoroutines  int
	runMaxSize     int
	runFreePercent int
	runDrain       bool
	runDetailed    bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVar(&runVariant, "variant", "locked", "Allocator variant: locked, unsynchronized or local")
	cmd.Flags().StringVar(&runStrategy, "strategy", "best", "Block selection for the unsynchronized variant: best or first")
	cmd.Flags().IntVar(&runOperations, "ops", 100000, "Operations performed by each goroutine")
	cmd.Flags().IntVar(&runGoroutines, "goroutines", 1, "Goroutines driving the workload")
	cmd.Flags().IntVar(&runMaxSize, "max-size", 512, "Largest allocation request in bytes")
	cmd.Flags().IntVar(&runFreePercent, "free-percent", 45, "Chance, in percent, that an operation frees instead of allocating")
	cmd.Flags().BoolVar(&runDrain, "drain", false, "Free every live allocation before reporting")
	cmd.Flags().BoolVar(&runDetailed, "detailed", false, "Include every block in the report")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a randomized workload and print allocator statistics",
		Long: `The run command reserves a heap, performs a random sequence of allocations
and frees against the selected allocator variant and prints the resulting
statistics as JSON, one document per allocator.

Example:
  heapbench run --variant locked --goroutines 8
  heapbench run --variant unsynchronized --strategy first --drain
  heapbench run --variant local --goroutines 4 --detailed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	return cmd
}

func parseStrategy(name string) (metadata.AllocationStrategy, error) {
	switch name {
	case "best":
		return metadata.AllocationStrategyBestFit, nil
	case "first":
		return metadata.AllocationStrategyFirstFit, nil
	}

	return 0, errors.Newf("unknown strategy %q", name)
}

func runBench() error {
	if runMaxSize < 1 {
		return errors.Newf("max-size must be positive, got %d", runMaxSize)
	}
	if runGoroutines < 1 {
		return errors.Newf("goroutines must be positive, got %d", runGoroutines)
	}
	if runFreePercent < 0 || runFreePercent > 100 {
		return errors.Newf("free-percent must be between 0 and 100, got %d", runFreePercent)
	}

	logger := newLogger()

	h, err := heap.New(logger, heap.CreateOptions{Capacity: capacity})
	if err != nil {
		return err
	}
	defer func() {
		_ = h.Destroy()
	}()

	targets, err := buildTargets(logger, h)
	if err != nil {
		return err
	}

	results := make([]workloadResult, runGoroutines)
	errs := make([]error, runGoroutines)

	var wg sync.WaitGroup
	for i := 0; i < runGoroutines; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()

			results[index], errs[index] = runWorkload(targets[index%len(targets)], workloadOptions{
				Operations:  runOperations,
				MaxSize:     runMaxSize,
				FreePercent: runFreePercent,
				Seed:        seed + int64(index),
				Drain:       runDrain,
			})
		}(i)
	}
	wg.Wait()

	var combined error
	var total workloadResult
	for i := range results {
		combined = errors.CombineErrors(combined, errs[i])
		total.add(results[i])
	}
	if combined != nil {
		return combined
	}

	logger.Info("heapbench complete",
		slog.String("Variant", runVariant),
		slog.Int("Allocations", total.Allocations),
		slog.Int("Frees", total.Frees),
		slog.Int("OutOfMemory", total.OutOfMemory),
		slog.Int("PeakLive", total.PeakLive),
		slog.Int("PeakLiveSize", total.PeakLiveSize),
		slog.Int("Break", h.Break()),
		slog.Int("Extensions", h.Extensions()),
	)

	for _, t := range targets {
		fmt.Println(t.BuildStatsString(runDetailed))
	}

	return nil
}

// buildTargets creates the allocators the workload goroutines will share. Goroutine i drives
// targets[i%len(targets)].
func buildTargets(logger *slog.Logger, h *heap.Heap) ([]target, error) {
	switch runVariant {
	case "locked":
		if runStrategy != "best" {
			return nil, errors.New("the locked variant only supports best fit")
		}

		allocator, err := malloc.New(logger, malloc.CreateOptions{Heap: h})
		if err != nil {
			return nil, err
		}
		return []target{allocator}, nil
	case "unsynchronized":
		if runGoroutines != 1 {
			return nil, errors.New("the unsynchronized variant can only be driven by one goroutine")
		}

		strategy, err := parseStrategy(runStrategy)
		if err != nil {
			return nil, err
		}

		allocator, err := malloc.New(logger, malloc.CreateOptions{
			Flags:    malloc.AllocatorCreateExternallySynchronized,
			Strategy: strategy,
			Heap:     h,
		})
		if err != nil {
			return nil, err
		}
		return []target{allocator}, nil
	case "local":
		if runStrategy != "best" {
			return nil, errors.New("the local variant only supports best fit")
		}

		targets := make([]target, runGoroutines)
		for i := range targets {
			targets[i] = malloc.NewLocalArena(logger, malloc.LocalArenaCreateOptions{Heap: h})
		}
		return targets, nil
	}

	return nil, errors.Newf("unknown variant %q", runVariant)
}
