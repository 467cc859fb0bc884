package metadata_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/tcalloc/memutils"
	"github.com/vkngwrapper/tcalloc/memutils/metadata"
)

func allocate(t *testing.T, tlsf *metadata.TLSFBlockMetadata, size int, alignment uint, strategy metadata.AllocationStrategy) metadata.BlockAllocationHandle {
	success, req, err := tlsf.CreateAllocationRequest(size, alignment, strategy)
	require.NoError(t, err)
	require.True(t, success)
	require.Equal(t, "TLSF", req.Type.String())

	err = tlsf.Alloc(req)
	require.NoError(t, err)

	return req.BlockAllocationHandle
}

func requireOffset(t *testing.T, tlsf *metadata.TLSFBlockMetadata, handle metadata.BlockAllocationHandle, expected int) {
	offset, err := tlsf.AllocationOffset(handle)
	require.NoError(t, err)
	require.Equal(t, expected, offset)
}

func TestTLSFBasicAlloc(t *testing.T) {
	tlsf := metadata.NewTLSFBlockMetadata()
	tlsf.Init(1000)

	var stats memutils.DetailedStatistics
	stats.Clear()
	tlsf.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      1,
			BlockBytes:      1000,
			AllocationCount: 0,
			AllocationBytes: 0,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  math.MaxInt,
		AllocationSizeMax:  0,
		UnusedRangeSizeMin: 1000,
		UnusedRangeSizeMax: 1000,
	}, stats)

	alloc1 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)

	stats.Clear()
	tlsf.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      1,
			BlockBytes:      1000,
			AllocationCount: 1,
			AllocationBytes: 100,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  100,
		AllocationSizeMax:  100,
		UnusedRangeSizeMin: 900,
		UnusedRangeSizeMax: 900,
	}, stats)
	require.False(t, tlsf.IsEmpty())

	size, err := tlsf.AllocationSize(alloc1)
	require.NoError(t, err)
	require.Equal(t, 100, size)

	err = tlsf.Free(alloc1)
	require.NoError(t, err)

	stats.Clear()
	tlsf.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      1,
			BlockBytes:      1000,
			AllocationCount: 0,
			AllocationBytes: 0,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  math.MaxInt,
		AllocationSizeMax:  0,
		UnusedRangeSizeMin: 1000,
		UnusedRangeSizeMax: 1000,
	}, stats)
	require.True(t, tlsf.IsEmpty())
	require.NoError(t, tlsf.Validate())
}

func TestTLSFSameSize(t *testing.T) {
	tlsf := metadata.NewTLSFBlockMetadata()
	tlsf.Init(10000)

	alloc1 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)
	alloc2 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)
	alloc3 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)
	alloc4 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)

	var stats memutils.Statistics
	tlsf.AddStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount:      1,
		BlockBytes:      10000,
		AllocationCount: 4,
		AllocationBytes: 400,
	}, stats)
	require.Equal(t, 9600, stats.FreeBytes())

	require.NoError(t, tlsf.Free(alloc1))
	require.NoError(t, tlsf.Free(alloc3))
	require.NoError(t, tlsf.Validate())
	require.Equal(t, 3, tlsf.FreeRegionsCount())

	require.NoError(t, tlsf.Free(alloc2))
	require.NoError(t, tlsf.Validate())
	require.Equal(t, 2, tlsf.FreeRegionsCount())

	require.NoError(t, tlsf.Free(alloc4))
	require.NoError(t, tlsf.Validate())
	require.Equal(t, 1, tlsf.FreeRegionsCount())
	require.Equal(t, 10000, tlsf.SumFreeSize())
	require.True(t, tlsf.IsEmpty())
}

func TestTLSFAlignmentGap(t *testing.T) {
	tlsf := metadata.NewTLSFBlockMetadata()
	tlsf.Init(1000)

	alloc1 := allocate(t, tlsf, 10, 1, metadata.AllocationStrategyMinMemory)
	alloc2 := allocate(t, tlsf, 100, 64, metadata.AllocationStrategyMinMemory)
	requireOffset(t, tlsf, alloc1, 0)
	requireOffset(t, tlsf, alloc2, 64)

	var stats memutils.DetailedStatistics
	stats.Clear()
	tlsf.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      1,
			BlockBytes:      1000,
			AllocationCount: 2,
			AllocationBytes: 110,
		},
		UnusedRangeCount:   2,
		AllocationSizeMin:  10,
		AllocationSizeMax:  100,
		UnusedRangeSizeMin: 54,
		UnusedRangeSizeMax: 836,
	}, stats)
	require.Equal(t, 2, tlsf.FreeRegionsCount())
	require.NoError(t, tlsf.Validate())

	// The gap left behind by the alignment is reused
	alloc3 := allocate(t, tlsf, 40, 1, metadata.AllocationStrategyMinMemory)
	requireOffset(t, tlsf, alloc3, 10)
	require.NoError(t, tlsf.Validate())

	require.NoError(t, tlsf.Free(alloc2))
	require.NoError(t, tlsf.Validate())

	stats.Clear()
	tlsf.AddDetailedStatistics(&stats)
	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, 50, stats.AllocationBytes)
	require.Equal(t, 1, stats.UnusedRangeCount)
	require.Equal(t, 950, stats.UnusedRangeSizeMax)

	require.NoError(t, tlsf.Free(alloc1))
	require.NoError(t, tlsf.Free(alloc3))
	require.NoError(t, tlsf.Validate())
	require.True(t, tlsf.IsEmpty())
}

func TestTLSFMinOffsetPrefersLowestHole(t *testing.T) {
	tlsf := metadata.NewTLSFBlockMetadata()
	tlsf.Init(1000)

	alloc1 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)
	alloc2 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)
	alloc3 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)
	alloc4 := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)

	require.NoError(t, tlsf.Free(alloc1))
	require.NoError(t, tlsf.Free(alloc3))

	low := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinOffset)
	requireOffset(t, tlsf, low, 0)

	high := allocate(t, tlsf, 100, 1, metadata.AllocationStrategyMinMemory)
	requireOffset(t, tlsf, high, 200)

	require.NoError(t, tlsf.Validate())

	for _, handle := range []metadata.BlockAllocationHandle{alloc2, alloc4, low, high} {
		require.NoError(t, tlsf.Free(handle))
	}
	require.True(t, tlsf.IsEmpty())
}

func TestTLSFExhausted(t *testing.T) {
	tlsf := metadata.NewTLSFBlockMetadata()
	tlsf.Init(256)

	allocate(t, tlsf, 200, 1, 0)

	success, _, err := tlsf.CreateAllocationRequest(100, 1, 0)
	require.NoError(t, err)
	require.False(t, success)

	// Fits by size, but not once the offset is aligned
	success, _, err = tlsf.CreateAllocationRequest(40, 128, metadata.AllocationStrategyMinTime)
	require.NoError(t, err)
	require.False(t, success)
}

func TestTLSFInvalidRequests(t *testing.T) {
	tlsf := metadata.NewTLSFBlockMetadata()
	tlsf.Init(1000)

	_, _, err := tlsf.CreateAllocationRequest(0, 1, 0)
	require.Error(t, err)

	_, _, err = tlsf.CreateAllocationRequest(10, 3, 0)
	require.ErrorIs(t, err, memutils.PowerOfTwoError)

	alloc := allocate(t, tlsf, 10, 1, 0)
	require.NoError(t, tlsf.Free(alloc))
	require.Error(t, tlsf.Free(alloc))
	require.Error(t, tlsf.Free(metadata.NoAllocation))

	_, err = tlsf.AllocationSize(alloc)
	require.Error(t, err)
}

func TestTLSFChurn(t *testing.T) {
	const blockSize = 1 << 20

	strategies := []metadata.AllocationStrategy{
		0,
		metadata.AllocationStrategyMinMemory,
		metadata.AllocationStrategyMinTime,
		metadata.AllocationStrategyMinOffset,
	}

	for _, strategy := range strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			tlsf := metadata.NewTLSFBlockMetadata()
			tlsf.Init(blockSize)

			var handles []metadata.BlockAllocationHandle
			alloc := func(i int) {
				size := (i*37)%500 + 1
				alignment := uint(1) << (i % 7)

				handle := allocate(t, tlsf, size, alignment, strategy)
				offset, err := tlsf.AllocationOffset(handle)
				require.NoError(t, err)
				require.True(t, memutils.IsAligned(offset, int(alignment)))
				handles = append(handles, handle)
			}

			for i := 0; i < 100; i++ {
				alloc(i)
			}
			require.NoError(t, tlsf.Validate())

			var kept []metadata.BlockAllocationHandle
			for i, handle := range handles {
				if i%2 == 0 {
					require.NoError(t, tlsf.Free(handle))
				} else {
					kept = append(kept, handle)
				}
			}
			handles = kept
			require.NoError(t, tlsf.Validate())
			require.Equal(t, 50, tlsf.AllocationCount())

			for i := 100; i < 150; i++ {
				alloc(i)
			}
			require.NoError(t, tlsf.Validate())

			for _, handle := range handles {
				require.NoError(t, tlsf.Free(handle))
			}
			require.NoError(t, tlsf.Validate())
			require.True(t, tlsf.IsEmpty())
			require.Equal(t, blockSize, tlsf.SumFreeSize())
		})
	}
}
