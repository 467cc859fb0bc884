package tcalloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/tcalloc/engine/tlsf"
	"github.com/vkngwrapper/tcalloc/memutils/metadata"
)

var sizeClassBoundaryLayouts = []Layout{
	{Size: 1, Align: 8},
	{Size: 8, Align: 8},
	{Size: 9, Align: 16},
	{Size: 16, Align: 16},
	{Size: 17, Align: 32},
	{Size: 32, Align: 32},
	{Size: 33, Align: 64},
	{Size: 600, Align: 64},
	{Size: 640, Align: 64},
}

type allocatorFixture struct {
	name      string
	allocator *Allocator
	// strict is set when the engine can prove it holds no live allocations
	strict *tlsf.Engine
}

func (f allocatorFixture) requireNoLeaks(t *testing.T) {
	if f.strict == nil {
		return
	}

	require.NoError(t, f.strict.Validate())
	require.Equal(t, 0, f.strict.Statistics().AllocationCount)
}

func allocatorFixtures(t *testing.T) []allocatorFixture {
	strict := readyBacking(t)
	strictAllocator, err := New(testLogger(), strict, CreateOptions{})
	require.NoError(t, err)

	sdallocx, err := tlsf.New(testLogger(), tlsf.CreateOptions{MinAlignment: 64, Strategy: metadata.AllocationStrategyMinTime})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, sdallocx.Close())
	})
	sdallocxAllocator, err := New(testLogger(), sdallocx, CreateOptions{Flags: CreateDeallocUseSdallocx})
	require.NoError(t, err)

	defaultEngine, err := DefaultEngine()
	require.NoError(t, err)
	defaultAllocator, err := New(testLogger(), defaultEngine, CreateOptions{})
	require.NoError(t, err)

	return []allocatorFixture{
		{name: "Strict", allocator: strictAllocator, strict: strict},
		{name: "StrictSdallocx", allocator: sdallocxAllocator, strict: sdallocx},
		{name: "Default", allocator: defaultAllocator},
	}
}

func TestZeroSizeSentinelAllAlignments(t *testing.T) {
	for _, fixture := range allocatorFixtures(t) {
		t.Run(fixture.name, func(t *testing.T) {
			for align := uintptr(1); align != 0 && align <= 1<<30; align <<= 1 {
				layout := Layout{Size: 0, Align: align}

				handle := fixture.allocator.Alloc(layout)
				require.False(t, handle.IsNull())
				require.True(t, handle.IsAligned(align))

				fixture.allocator.Dealloc(handle, layout)
			}

			fixture.requireNoLeaks(t)
		})
	}
}

func TestOverAlignedStress(t *testing.T) {
	const count = 1000

	for _, fixture := range allocatorFixtures(t) {
		t.Run(fixture.name, func(t *testing.T) {
			defaultAlignment := fixture.allocator.DefaultAlignment()

			for _, align := range []uintptr{defaultAlignment * 2, defaultAlignment * 4, 4096} {
				layout := Layout{Size: 8, Align: align}

				handles := make([]Handle, 0, count)
				for i := 0; i < count; i++ {
					handle := fixture.allocator.Alloc(layout)
					require.False(t, handle.IsNull())
					handles = append(handles, handle)
				}

				for _, handle := range handles {
					require.True(t, handle.IsAligned(align), "handle %#x at alignment %d", handle, align)
				}

				for _, handle := range handles {
					fixture.allocator.Dealloc(handle, layout)
				}
			}

			fixture.requireNoLeaks(t)
		})
	}
}

func TestSizeClassBoundaryRoundTrip(t *testing.T) {
	for _, fixture := range allocatorFixtures(t) {
		t.Run(fixture.name, func(t *testing.T) {
			for _, base := range sizeClassBoundaryLayouts {
				for align := base.Align; align <= 4096; align <<= 2 {
					layout := Layout{Size: base.Size, Align: align}

					handle := fixture.allocator.Alloc(layout)
					require.False(t, handle.IsNull())
					require.True(t, handle.IsAligned(align))
					fill(handle, layout.Size, 0xEE)
					fixture.allocator.Dealloc(handle, layout)

					zeroed := fixture.allocator.AllocZeroed(layout)
					require.False(t, zeroed.IsNull())
					require.True(t, zeroed.IsAligned(align))
					require.Equal(t, make([]byte, layout.Size), zeroed.Bytes(layout.Size))
					fixture.allocator.Dealloc(zeroed, layout)
				}
			}

			fixture.requireNoLeaks(t)
		})
	}
}

func TestReallocZeroSizeEquivalences(t *testing.T) {
	for _, fixture := range allocatorFixtures(t) {
		t.Run(fixture.name, func(t *testing.T) {
			for _, layout := range sizeClassBoundaryLayouts {
				empty := Layout{Size: 0, Align: layout.Align}

				// Resizing the sentinel is a fresh allocation
				handle := fixture.allocator.Realloc(empty.Sentinel(), empty, layout.Size)
				require.False(t, handle.IsNull())
				require.NotEqual(t, empty.Sentinel(), handle)
				require.True(t, handle.IsAligned(layout.Align))
				fill(handle, layout.Size, 0x11)

				// Resizing to zero frees and hands back the sentinel
				require.Equal(t, empty.Sentinel(), fixture.allocator.Realloc(handle, layout, 0))
			}

			fixture.requireNoLeaks(t)
		})
	}
}

func TestReallocPreservesPrefix(t *testing.T) {
	for _, fixture := range allocatorFixtures(t) {
		t.Run(fixture.name, func(t *testing.T) {
			defaultAlignment := fixture.allocator.DefaultAlignment()

			for _, align := range []uintptr{1, defaultAlignment, defaultAlignment * 2, 256, 8192} {
				layout := Layout{Size: 33, Align: align}
				handle := fixture.allocator.Alloc(layout)
				require.False(t, handle.IsNull())

				for _, newSize := range []uintptr{640, 5000, 17, 1} {
					seedPattern(handle, layout.Size)

					resized := fixture.allocator.Realloc(handle, layout, newSize)
					require.False(t, resized.IsNull())
					require.True(t, resized.IsAligned(align), "alignment %d size %d", align, newSize)

					preserved := min(layout.Size, newSize)
					for i, b := range resized.Bytes(preserved) {
						require.Equal(t, byte(i*7), b, "alignment %d size %d byte %d", align, newSize, i)
					}

					handle = resized
					layout.Size = newSize
				}

				fixture.allocator.Dealloc(handle, layout)
			}

			fixture.requireNoLeaks(t)
		})
	}
}

// seedPattern writes byte(i*7) at every offset i of the allocation
func seedPattern(handle Handle, size uintptr) {
	for i := range handle.Bytes(size) {
		handle.Bytes(size)[i] = byte(i * 7)
	}
}

func TestOneByteAtSixteenFreesThroughUsableSize(t *testing.T) {
	for _, fixture := range allocatorFixtures(t) {
		t.Run(fixture.name, func(t *testing.T) {
			layout := Layout{Size: 1, Align: 16}

			handle := fixture.allocator.Alloc(layout)
			require.False(t, handle.IsNull())
			require.Greater(t, uint64(fixture.allocator.Engine().UsableSize(handle.pointer())), uint64(layout.Size))

			require.NotPanics(t, func() {
				fixture.allocator.Dealloc(handle, layout)
			})

			fixture.requireNoLeaks(t)
		})
	}
}

func TestConcurrentStress(t *testing.T) {
	for _, fixture := range allocatorFixtures(t) {
		t.Run(fixture.name, func(t *testing.T) {
			var wg sync.WaitGroup

			for worker := 0; worker < 8; worker++ {
				wg.Add(1)
				go func(worker int) {
					defer wg.Done()

					type live struct {
						handle Handle
						layout Layout
					}
					var held []live

					for i := 0; i < 400; i++ {
						layout := sizeClassBoundaryLayouts[(i+worker)%len(sizeClassBoundaryLayouts)]
						if i%5 == 0 {
							layout.Align = 256
						}

						handle := fixture.allocator.AllocZeroed(layout)
						if handle.IsNull() {
							t.Errorf("allocation of %+v failed", layout)
							return
						}
						handle.Bytes(layout.Size)[0] = byte(worker)
						held = append(held, live{handle: handle, layout: layout})

						if i%4 == 0 {
							grown := fixture.allocator.Realloc(handle, layout, layout.Size*3)
							if grown.IsNull() || grown.Bytes(1)[0] != byte(worker) {
								t.Errorf("resize of %+v failed", layout)
								return
							}
							held[len(held)-1] = live{handle: grown, layout: Layout{Size: layout.Size * 3, Align: layout.Align}}
						}

						if i%3 == 0 {
							victim := held[0]
							held = held[1:]
							if victim.handle.Bytes(1)[0] != byte(worker) {
								t.Errorf("allocation %+v was overwritten", victim.layout)
							}
							fixture.allocator.Dealloc(victim.handle, victim.layout)
						}
					}

					for _, item := range held {
						fixture.allocator.Dealloc(item.handle, item.layout)
					}
				}(worker)
			}

			wg.Wait()
			fixture.requireNoLeaks(t)
		})
	}
}
