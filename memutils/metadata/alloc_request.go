package metadata

// AllocationRequestType is an enum that indicates how an allocation request will be satisfied.
// It is returned in AllocationRequest from CreateAllocationRequest
type AllocationRequestType uint32

const (
	// AllocationRequestFit indicates that an existing free block was found and will be reused,
	// split first if the leftover can host another block
	AllocationRequestFit AllocationRequestType = iota
	// AllocationRequestExtend indicates that no free block was large enough and the heap break
	// must be advanced to create a new block after the chain's tail
	AllocationRequestExtend
)

var allocationRequestMapping = map[AllocationRequestType]string{
	AllocationRequestFit:    "Fit",
	AllocationRequestExtend: "Extend",
}

func (t AllocationRequestType) String() string {
	return allocationRequestMapping[t]
}

// AllocationRequest is a type returned from BlockList.CreateAllocationRequest which indicates where and how
// the list intends to place a new allocation. It is committed with BlockList.Alloc, and must be committed
// before any other change is made to the list.
type AllocationRequest struct {
	// Type identifies whether the request reuses a free block or extends the heap
	Type AllocationRequestType
	// Size is the aligned payload size of the allocation
	Size int
	// Block is the offset of the free block selected for an AllocationRequestFit request, or NoBlock
	Block int
	// Last is the last block visited while searching, which is the tail of the chain when
	// nothing fit. An AllocationRequestExtend request links the new block after it. NoBlock
	// means the chain is empty.
	Last int
}
