package metadata

import (
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/tcalloc/memutils"
)

const (
	// SmallBufferSize is the largest size served by the first memory class, which is split into
	// four linear buckets instead of a power-of-two range
	SmallBufferSize = 256
	// SecondLevelIndex is log2 of the number of buckets each power-of-two memory class is divided into
	SecondLevelIndex uint8 = 5

	memoryClassShift = 7
	maxMemoryClasses = 65 - memoryClassShift
	smallListCount   = 4
	smallSizeStep    = SmallBufferSize / smallListCount
)

var regionPool = sync.Pool{
	New: func() any {
		return &region{}
	},
}

// region is a contiguous run of bytes in the block, either taken by an allocation or free. Regions
// are chained in address order through prev/next. Free regions are additionally chained through
// freePrev/freeNext into the list for their size.
type region struct {
	offset int
	size   int
	prev   *region
	next   *region

	freePrev *region
	freeNext *region

	handle BlockAllocationHandle
}

// A taken region points freePrev at itself, which no free region can do
func (r *region) isFree() bool { return r.freePrev != r }
func (r *region) markTaken()   { r.freePrev = r }

func sizeClass(size int) uint8 {
	if size <= SmallBufferSize {
		return 0
	}
	return uint8(bits.Len(uint(size))-1) - memoryClassShift
}

func secondIndex(size int, class uint8) uint16 {
	if class == 0 {
		return uint16((size - 1) / smallSizeStep)
	}
	return uint16((uint(size) >> (class + memoryClassShift - SecondLevelIndex)) ^ (1 << SecondLevelIndex))
}

func flatIndex(class uint8, second uint16) int {
	if class == 0 {
		return int(second)
	}
	return int(class-1)<<SecondLevelIndex + int(second) + smallListCount
}

func listIndexForSize(size int) (uint8, uint16, int) {
	class := sizeClass(size)
	second := secondIndex(size, class)
	return class, second, flatIndex(class, second)
}

// nextListSize returns a size that lands in a list past the one size belongs to. Every region in that
// list or beyond is large enough for size before alignment is considered.
func nextListSize(size int) int {
	switch {
	case size > SmallBufferSize:
		return size + 1<<(bits.Len(uint(size))-1-int(SecondLevelIndex))
	case size > SmallBufferSize-smallSizeStep:
		return SmallBufferSize + 1
	default:
		return size + smallSizeStep
	}
}

// TLSFBlockMetadata is a two-level segregated fit implementation of BlockMetadata. Free regions are
// bucketed first by the power of two of their size (the memory class) and then linearly within that
// range (the second index), so finding a list that can hold a request is a pair of bit scans.
//
// The end of the block that has never been handed out, or has been returned and merged back, is the
// tail region. It is never placed in a free list.
type TLSFBlockMetadata struct {
	BlockMetadataBase

	allocCount int
	freeCount  int
	freeBytes  int

	classBitmap   uint32
	secondBitmaps [maxMemoryClasses]uint32
	lists         []*region

	head *region
	tail *region

	regions    *swiss.Map[BlockAllocationHandle, *region]
	nextHandle BlockAllocationHandle
}

var _ BlockMetadata = &TLSFBlockMetadata{}

func NewTLSFBlockMetadata() *TLSFBlockMetadata {
	return &TLSFBlockMetadata{}
}

func (m *TLSFBlockMetadata) Init(size int) {
	m.BlockMetadataBase.Init(size)
	m.regions = swiss.NewMap[BlockAllocationHandle, *region](42)

	m.setTail(m.newRegion(0, size))
	m.head = m.tail

	_, _, lastIndex := listIndexForSize(size)
	m.lists = make([]*region, lastIndex+1)
}

// newRegion creates a region in the taken state
func (m *TLSFBlockMetadata) newRegion(offset, size int) *region {
	m.nextHandle++

	r := regionPool.Get().(*region)
	*r = region{
		offset: offset,
		size:   size,
		handle: m.nextHandle,
	}
	r.markTaken()
	m.regions.Put(r.handle, r)

	return r
}

func (m *TLSFBlockMetadata) dropRegion(r *region) {
	m.regions.Delete(r.handle)
	*r = region{}
	regionPool.Put(r)
}

func (m *TLSFBlockMetadata) setTail(r *region) {
	r.freePrev = nil
	r.freeNext = nil
	m.tail = r
}

func (m *TLSFBlockMetadata) lookup(handle BlockAllocationHandle) (*region, error) {
	r, ok := m.regions.Get(handle)
	if !ok {
		return nil, errors.Errorf("received handle %d, which is not known to this metadata", handle)
	}
	return r, nil
}

func (m *TLSFBlockMetadata) lookupTaken(handle BlockAllocationHandle) (*region, error) {
	r, err := m.lookup(handle)
	if err != nil {
		return nil, err
	}
	if r.isFree() {
		return nil, errors.Errorf("region at offset %d is free", r.offset)
	}
	return r, nil
}

func (m *TLSFBlockMetadata) AllocationCount() int {
	return m.allocCount
}

func (m *TLSFBlockMetadata) FreeRegionsCount() int {
	if m.tail.size > 0 {
		return m.freeCount + 1
	}
	return m.freeCount
}

func (m *TLSFBlockMetadata) SumFreeSize() int {
	return m.freeBytes + m.tail.size
}

func (m *TLSFBlockMetadata) IsEmpty() bool {
	return m.tail.offset == 0
}

func (m *TLSFBlockMetadata) AllocationOffset(allocHandle BlockAllocationHandle) (int, error) {
	r, err := m.lookupTaken(allocHandle)
	if err != nil {
		return 0, err
	}
	return r.offset, nil
}

func (m *TLSFBlockMetadata) AllocationSize(allocHandle BlockAllocationHandle) (int, error) {
	r, err := m.lookupTaken(allocHandle)
	if err != nil {
		return 0, err
	}
	return r.size, nil
}

func (m *TLSFBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.AllocationCount += m.allocCount
	stats.BlockBytes += m.size
	stats.AllocationBytes += m.size - m.SumFreeSize()
}

func (m *TLSFBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += m.size

	for r := m.head; r != nil; r = r.next {
		switch {
		case r == m.tail:
			if r.size > 0 {
				stats.AddUnusedRange(r.size)
			}
		case r.isFree():
			stats.AddUnusedRange(r.size)
		default:
			stats.AddAllocation(r.size)
		}
	}
}

func (m *TLSFBlockMetadata) Validate() error {
	if m.SumFreeSize() > m.Size() {
		return errors.New("invalid metadata free size")
	}
	if m.head == nil || m.head.prev != nil {
		return errors.New("the first region must not have a region before it")
	}
	if m.tail.next != nil {
		return errors.New("the tail region must be the last region in the block")
	}
	if !m.tail.isFree() {
		return errors.New("the tail region must never be taken")
	}

	var takenCount, freeCount, freeBytes, linkedCount int
	expectedOffset := 0

	for r := m.head; r != nil; r = r.next {
		if r.offset != expectedOffset {
			return errors.Errorf("region at offset %d should start at offset %d", r.offset, expectedOffset)
		}
		if r.next != nil && r.next.prev != r {
			return errors.Errorf("region at offset %d has a next region whose back reference is broken", r.offset)
		}
		if r.next == nil && r != m.tail {
			return errors.Errorf("region at offset %d ends the chain but is not the tail", r.offset)
		}
		expectedOffset += r.size

		if r == m.tail {
			continue
		}

		if !r.isFree() {
			takenCount++
			continue
		}

		if r.next.isFree() {
			return errors.Errorf("free regions at offsets %d and %d were not merged", r.offset, r.next.offset)
		}
		freeCount++
		freeBytes += r.size
	}

	for index, r := range m.lists {
		if r != nil && r.freePrev != nil {
			return errors.Errorf("region at offset %d heads free list %d but has a previous region", r.offset, index)
		}

		for ; r != nil; r = r.freeNext {
			if !r.isFree() {
				return errors.Errorf("region at offset %d is in free list %d but is taken", r.offset, index)
			}
			if r == m.tail {
				return errors.New("the tail region must not be placed in a free list")
			}
			if r.freeNext != nil && r.freeNext.freePrev != r {
				return errors.Errorf("region at offset %d has a next free region whose back reference is broken", r.offset)
			}
			if _, _, expected := listIndexForSize(r.size); expected != index {
				return errors.Errorf("region at offset %d with size %d belongs in free list %d, but it is in %d", r.offset, r.size, expected, index)
			}
			linkedCount++
		}
	}

	if expectedOffset != m.size {
		return errors.Errorf("the full size of the metadata is %d, but the regions only added up to %d", m.size, expectedOffset)
	}
	if linkedCount != freeCount {
		return errors.Errorf("there are %d free regions in the block, but %d in the free lists", freeCount, linkedCount)
	}
	if freeCount != m.freeCount {
		return errors.Errorf("the free region count of the metadata is %d, but there were %d free regions", m.freeCount, freeCount)
	}
	if freeBytes != m.freeBytes {
		return errors.Errorf("the free byte count of the metadata is %d, but the free regions added up to %d", m.freeBytes, freeBytes)
	}
	if takenCount != m.allocCount {
		return errors.Errorf("the allocation count of the metadata is %d, but there were %d taken regions", m.allocCount, takenCount)
	}

	return nil
}

func (m *TLSFBlockMetadata) CreateAllocationRequest(
	allocSize int, allocAlignment uint,
	strategy AllocationStrategy,
) (bool, AllocationRequest, error) {
	if allocSize < 1 {
		return false, AllocationRequest{}, errors.Errorf("invalid allocSize: %d", allocSize)
	}
	if err := memutils.CheckPow2(allocAlignment, "allocAlignment"); err != nil {
		return false, AllocationRequest{}, err
	}

	memutils.DebugValidate(m)

	if allocSize > m.SumFreeSize() {
		return false, AllocationRequest{}, nil
	}

	alignment := int(allocAlignment)
	var found *region
	var offset int

	switch {
	case m.freeCount == 0:
		found, offset = m.fitRegion(m.tail, allocSize, alignment)
	case strategy&AllocationStrategyMinTime != 0:
		found, offset = m.searchMinTime(allocSize, alignment)
	case strategy&AllocationStrategyMinMemory != 0:
		found, offset = m.searchMinMemory(allocSize, alignment)
	case strategy&AllocationStrategyMinOffset != 0:
		found, offset = m.searchMinOffset(allocSize, alignment)
	default:
		found, offset = m.searchBalanced(allocSize, alignment)
	}

	if found == nil {
		return false, AllocationRequest{}, nil
	}

	return true, AllocationRequest{
		BlockAllocationHandle: found.handle,
		Size:                  allocSize,
		Type:                  AllocationRequestTLSF,
		AlgorithmData:         uint64(offset),
	}, nil
}

func (m *TLSFBlockMetadata) fitRegion(r *region, size, alignment int) (*region, int) {
	if !r.isFree() {
		panic(fmt.Sprintf("region at offset %d is already taken", r.offset))
	}

	offset := memutils.AlignUp(r.offset, alignment)
	if r.offset+r.size < offset+size {
		return nil, 0
	}
	return r, offset
}

func (m *TLSFBlockMetadata) fitChain(r *region, size, alignment int) (*region, int) {
	for ; r != nil; r = r.freeNext {
		if found, offset := m.fitRegion(r, size, alignment); found != nil {
			return found, offset
		}
	}
	return nil, 0
}

// fitLists walks every free list from index onward
func (m *TLSFBlockMetadata) fitLists(index, size, alignment int) (*region, int) {
	for ; index < len(m.lists); index++ {
		if found, offset := m.fitChain(m.lists[index], size, alignment); found != nil {
			return found, offset
		}
	}
	return nil, 0
}

// firstListAtLeast finds the lowest non-empty free list whose regions may be large enough for size
func (m *TLSFBlockMetadata) firstListAtLeast(size int) (*region, int) {
	class, second, _ := listIndexForSize(size)

	secondMap := m.secondBitmaps[class] & (math.MaxUint32 << second)
	if secondMap == 0 {
		classMap := m.classBitmap & (math.MaxUint32 << (class + 1))
		if classMap == 0 {
			return nil, 0
		}

		class = uint8(bits.TrailingZeros32(classMap))
		secondMap = m.secondBitmaps[class]
		if secondMap == 0 {
			panic(fmt.Sprintf("memory class %d is marked as holding free regions, but none of its lists are", class))
		}
	}

	index := flatIndex(class, uint16(bits.TrailingZeros32(secondMap)))
	if m.lists[index] == nil {
		panic(fmt.Sprintf("free list %d is marked as holding free regions, but it is empty", index))
	}

	return m.lists[index], index
}

func (m *TLSFBlockMetadata) searchMinTime(size, alignment int) (*region, int) {
	larger, largerIndex := m.firstListAtLeast(nextListSize(size))

	if larger != nil {
		if found, offset := m.fitRegion(larger, size, alignment); found != nil {
			return found, offset
		}
	}

	if found, offset := m.fitRegion(m.tail, size, alignment); found != nil {
		return found, offset
	}

	if larger != nil {
		if found, offset := m.fitChain(larger.freeNext, size, alignment); found != nil {
			return found, offset
		}
	}

	bestFit, _ := m.firstListAtLeast(size)
	if found, offset := m.fitChain(bestFit, size, alignment); found != nil {
		return found, offset
	}

	if larger == nil {
		return nil, 0
	}
	return m.fitLists(largerIndex+1, size, alignment)
}

func (m *TLSFBlockMetadata) searchMinMemory(size, alignment int) (*region, int) {
	bestFit, _ := m.firstListAtLeast(size)
	if found, offset := m.fitChain(bestFit, size, alignment); found != nil {
		return found, offset
	}

	if found, offset := m.fitRegion(m.tail, size, alignment); found != nil {
		return found, offset
	}

	larger, largerIndex := m.firstListAtLeast(nextListSize(size))
	if larger == nil {
		return nil, 0
	}
	return m.fitLists(largerIndex, size, alignment)
}

// searchMinOffset walks the block in address order so the lowest fitting offset wins
func (m *TLSFBlockMetadata) searchMinOffset(size, alignment int) (*region, int) {
	for r := m.head; r != m.tail; r = r.next {
		if !r.isFree() || r.size < size {
			continue
		}
		if found, offset := m.fitRegion(r, size, alignment); found != nil {
			return found, offset
		}
	}

	return m.fitRegion(m.tail, size, alignment)
}

func (m *TLSFBlockMetadata) searchBalanced(size, alignment int) (*region, int) {
	larger, largerIndex := m.firstListAtLeast(nextListSize(size))
	if found, offset := m.fitChain(larger, size, alignment); found != nil {
		return found, offset
	}

	if found, offset := m.fitRegion(m.tail, size, alignment); found != nil {
		return found, offset
	}

	bestFit, _ := m.firstListAtLeast(size)
	if found, offset := m.fitChain(bestFit, size, alignment); found != nil {
		return found, offset
	}

	if larger == nil {
		return nil, 0
	}
	return m.fitLists(largerIndex+1, size, alignment)
}

func (m *TLSFBlockMetadata) Alloc(req AllocationRequest) error {
	if req.Type != AllocationRequestTLSF {
		return errors.Errorf("allocation request of type %s was received by an incompatible metadata", req.Type)
	}

	r, err := m.lookup(req.BlockAllocationHandle)
	if err != nil {
		return err
	}
	if !r.isFree() {
		return errors.New("allocation request points at a region that has already been allocated")
	}

	offset := int(req.AlgorithmData)
	if offset < r.offset || offset+req.Size > r.offset+r.size {
		return errors.Errorf("allocation request for %d bytes at offset %d does not fit the region at offset %d with size %d", req.Size, offset, r.offset, r.size)
	}

	wasTail := r == m.tail
	if !wasTail {
		m.unlink(r)
	}

	if gap := offset - r.offset; gap > 0 {
		m.giveGapToPrevious(r, gap)
	}

	if wasTail {
		// Whatever is left of the tail, possibly nothing, becomes the new tail
		tail := m.newRegion(r.offset+req.Size, r.size-req.Size)
		m.insertAfter(r, tail)
		m.setTail(tail)
	} else if r.size > req.Size {
		remainder := m.newRegion(r.offset+req.Size, r.size-req.Size)
		m.insertAfter(r, remainder)
		m.link(remainder)
	}

	r.size = req.Size
	r.markTaken()
	m.allocCount++

	return nil
}

// giveGapToPrevious moves the first gap bytes of r into the region before it, creating a free region
// for them when the previous region is taken
func (m *TLSFBlockMetadata) giveGapToPrevious(r *region, gap int) {
	prev := r.prev
	if prev == nil {
		panic("a region at offset 0 cannot have an alignment gap")
	}

	r.offset += gap
	r.size -= gap

	if prev.isFree() {
		m.unlink(prev)
		prev.size += gap
		m.link(prev)
		return
	}

	gapRegion := m.newRegion(prev.offset+prev.size, gap)
	m.insertAfter(prev, gapRegion)
	m.link(gapRegion)
}

func (m *TLSFBlockMetadata) Free(allocHandle BlockAllocationHandle) error {
	r, err := m.lookup(allocHandle)
	if err != nil {
		return err
	}
	if r.isFree() {
		return errors.Errorf("region at offset %d is already free", r.offset)
	}

	m.allocCount--

	if prev := r.prev; prev != nil && prev.isFree() {
		m.unlink(prev)
		m.absorbPrevious(r)
	}

	next := r.next
	switch {
	case next == m.tail:
		m.absorbPrevious(next)
	case next.isFree():
		m.unlink(next)
		m.absorbPrevious(next)
		m.link(next)
	default:
		m.link(r)
	}

	return nil
}

// absorbPrevious merges the region before r into r and discards it
func (m *TLSFBlockMetadata) absorbPrevious(r *region) {
	prev := r.prev

	r.offset = prev.offset
	r.size += prev.size
	r.prev = prev.prev
	if r.prev != nil {
		r.prev.next = r
	} else {
		m.head = r
	}

	m.dropRegion(prev)
}

func (m *TLSFBlockMetadata) insertAfter(r *region, inserted *region) {
	inserted.prev = r
	inserted.next = r.next
	if r.next != nil {
		r.next.prev = inserted
	}
	r.next = inserted
}

// link pushes a taken region onto the front of the free list for its size, marking it free
func (m *TLSFBlockMetadata) link(r *region) {
	if r == m.tail {
		panic("cannot place the tail region in a free list")
	}
	if r.isFree() {
		panic(fmt.Sprintf("region at offset %d is already free", r.offset))
	}

	class, second, index := listIndexForSize(r.size)

	r.freePrev = nil
	r.freeNext = m.lists[index]
	if r.freeNext != nil {
		r.freeNext.freePrev = r
	}
	m.lists[index] = r

	m.secondBitmaps[class] |= 1 << second
	m.classBitmap |= 1 << class
	m.freeCount++
	m.freeBytes += r.size
}

// unlink removes a free region from its free list, marking it taken
func (m *TLSFBlockMetadata) unlink(r *region) {
	if r == m.tail {
		panic("cannot remove the tail region from a free list")
	}
	if !r.isFree() {
		panic(fmt.Sprintf("region at offset %d is not free", r.offset))
	}

	if r.freeNext != nil {
		r.freeNext.freePrev = r.freePrev
	}

	if r.freePrev != nil {
		r.freePrev.freeNext = r.freeNext
	} else {
		class, second, index := listIndexForSize(r.size)
		if m.lists[index] != r {
			panic(fmt.Sprintf("region at offset %d was not at the head of free list %d", r.offset, index))
		}

		m.lists[index] = r.freeNext
		if m.lists[index] == nil {
			m.secondBitmaps[class] &^= 1 << second
			if m.secondBitmaps[class] == 0 {
				m.classBitmap &^= 1 << class
			}
		}
	}

	r.markTaken()
	r.freeNext = nil
	m.freeCount--
	m.freeBytes -= r.size
}
