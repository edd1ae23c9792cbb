package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/brkheap/heap"
	"golang.org/x/exp/slog"
)

var (
	// Global flags
	verbose  bool
	capacity int
	seed     int64
)

var rootCmd = &cobra.Command{
	Use:   "heapbench",
	Short: "Drive synthetic workloads through the break-pointer allocators",
	Long: `heapbench runs randomized allocate/free workloads against one of the
allocator variants on a freshly reserved heap, then prints the allocator's
statistics as JSON. It is meant for comparing fragmentation and heap growth
between strategies and synchronization modes.`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log allocator activity to stderr")
	rootCmd.PersistentFlags().IntVar(&capacity, "capacity", heap.DefaultCapacity, "Bytes to reserve for the heap")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 1, "Seed for the workload's random sizes and frees")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(os.Stderr))
}
