package metadata

// AllocationStrategy exposes several options for choosing the location of a new allocation.
// If none is chosen, a balanced strategy will be used.
type AllocationStrategy uint32

const (
	// AllocationStrategyMinMemory chooses the smallest-possible free range for the allocation to minimize
	// memory usage and fragmentation, possibly at the expense of allocation time
	AllocationStrategyMinMemory AllocationStrategy = 1 << iota
	// AllocationStrategyMinTime chooses the first suitable free range that is cheapest to find, possibly
	// at the expense of fragmentation
	AllocationStrategyMinTime
	// AllocationStrategyMinOffset chooses the lowest offset in available space. It is slow but keeps
	// live allocations packed toward the start of the block.
	AllocationStrategyMinOffset
)

var allocationStrategyMapping = map[AllocationStrategy]string{
	AllocationStrategyMinMemory: "MinMemory",
	AllocationStrategyMinTime:   "MinTime",
	AllocationStrategyMinOffset: "MinOffset",
}

func (s AllocationStrategy) String() string {
	if s == 0 {
		return "Balanced"
	}
	if str, ok := allocationStrategyMapping[s]; ok {
		return str
	}
	return "Mixed"
}
