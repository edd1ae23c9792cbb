package metadata

// AllocationStrategy chooses which free block satisfies a new allocation
type AllocationStrategy uint32

const (
	// AllocationStrategyBestFit scans the entire chain and selects the free block that leaves
	// the least unused space behind. An exact fit ends the scan early, and among blocks with the
	// same leftover, the one with the lowest offset wins. This is the default.
	AllocationStrategyBestFit AllocationStrategy = iota
	// AllocationStrategyFirstFit selects the first free block, in address order, that is large
	// enough. It is cheaper than best fit but tends to fragment the low end of the heap.
	AllocationStrategyFirstFit
)

var allocationStrategyMapping = map[AllocationStrategy]string{
	AllocationStrategyBestFit:  "BestFit",
	AllocationStrategyFirstFit: "FirstFit",
}

func (s AllocationStrategy) String() string {
	return allocationStrategyMapping[s]
}
