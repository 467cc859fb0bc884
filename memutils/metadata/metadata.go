package metadata

import (
	"github.com/vkngwrapper/tcalloc/memutils"
)

// BlockMetadata represents a single large region of memory (an arena) within some heap. It manages
// suballocations within the region, allowing allocations to be requested, freed and queried. It never
// touches the memory it describes: all positions are byte offsets from the start of the region.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. It sizes the region, in bytes, that
	// the metadata will be managing.
	Init(size int)
	// Size retrieves the size in bytes that the block was initialized with
	Size() int

	// Validate performs internal consistency checks on the metadata. These checks are expensive.
	// When the implementation is functioning correctly, it should not be possible for this method
	// to return an error.
	Validate() error
	// AllocationCount returns the number of suballocations currently live in the block
	AllocationCount() int
	// FreeRegionsCount returns the number of distinct regions of free memory in the block. Adjacent
	// free regions are always merged, so they count once.
	FreeRegionsCount() int
	// SumFreeSize returns the number of free bytes of memory in the block.
	SumFreeSize() int
	// IsEmpty will return true if this block has no live suballocations
	IsEmpty() bool

	// AllocationOffset accepts a BlockAllocationHandle that maps to a live allocation within the block
	// and returns its offset in bytes from the start of the block.
	AllocationOffset(allocHandle BlockAllocationHandle) (int, error)
	// AllocationSize accepts a BlockAllocationHandle that maps to a live allocation within the block
	// and returns the number of bytes reserved for it, which may exceed the size requested.
	AllocationSize(allocHandle BlockAllocationHandle) (int, error)

	// AddDetailedStatistics sums this block's allocation statistics into the provided
	// memutils.DetailedStatistics object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this block's allocation statistics into the provided memutils.Statistics object.
	AddStatistics(stats *memutils.Statistics)

	// CreateAllocationRequest retrieves an AllocationRequest object indicating where the implementation
	// would place an allocation of allocSize bytes whose offset is a multiple of allocAlignment. The
	// boolean is false, with a nil error, when the block cannot currently fit the allocation. The
	// request can be passed to Alloc to commit the allocation.
	CreateAllocationRequest(allocSize int, allocAlignment uint, strategy AllocationStrategy) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest object. The implementation must return an error if the
	// request is no longer valid.
	Alloc(request AllocationRequest) error
	// Free frees a suballocation within the block, causing it to become a free region once again.
	//
	// The implementation must return an error if the provided handle does not map to a live allocation
	// within this block.
	Free(allocHandle BlockAllocationHandle) error
}

// BlockMetadataBase provides the size bookkeeping shared by BlockMetadata implementations
type BlockMetadataBase struct {
	size int
}

// Init sizes this block in bytes
func (m *BlockMetadataBase) Init(size int) {
	m.size = size
}

// Size returns the size of the block in bytes
func (m *BlockMetadataBase) Size() int { return m.size }
