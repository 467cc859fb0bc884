package memutils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/tcalloc/memutils"
)

func TestStatisticsAccumulate(t *testing.T) {
	stats := memutils.Statistics{BlockCount: 1, BlockBytes: 4096, AllocationCount: 2, AllocationBytes: 96}
	stats.AddStatistics(&memutils.Statistics{BlockCount: 1, BlockBytes: 8192, AllocationCount: 1, AllocationBytes: 5120})

	require.Equal(t, memutils.Statistics{
		BlockCount:      2,
		BlockBytes:      12288,
		AllocationCount: 3,
		AllocationBytes: 5216,
	}, stats)
	require.Equal(t, 7072, stats.FreeBytes())

	stats.Clear()
	require.Equal(t, memutils.Statistics{}, stats)
}

func TestDetailedStatisticsAccumulate(t *testing.T) {
	var first memutils.DetailedStatistics
	first.Clear()
	require.Equal(t, math.MaxInt, first.AllocationSizeMin)
	require.Equal(t, math.MaxInt, first.UnusedRangeSizeMin)

	first.BlockCount = 1
	first.BlockBytes = 1024
	first.AddAllocation(16)
	first.AddAllocation(608)
	first.AddUnusedRange(400)

	var second memutils.DetailedStatistics
	second.Clear()
	second.BlockCount = 1
	second.BlockBytes = 256
	second.AddUnusedRange(256)

	first.AddDetailedStatistics(&second)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      2,
			BlockBytes:      1280,
			AllocationCount: 2,
			AllocationBytes: 624,
		},
		UnusedRangeCount:   2,
		AllocationSizeMin:  16,
		AllocationSizeMax:  608,
		UnusedRangeSizeMin: 256,
		UnusedRangeSizeMax: 400,
	}, first)
}
