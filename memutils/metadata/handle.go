package metadata

import "math"

// BlockAllocationHandle is a numeric handle identifying a region (free or allocated) within a BlockMetadata
type BlockAllocationHandle uint64

const (
	NoAllocation BlockAllocationHandle = math.MaxUint64
)
