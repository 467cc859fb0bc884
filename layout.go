package tcalloc

import (
	"unsafe"

	"github.com/vkngwrapper/tcalloc/memutils"
)

// Layout describes an allocation request: a size in bytes and a power-of-two alignment. Every
// Dealloc and Realloc must be passed the same Layout the handle was allocated with.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout builds a Layout, verifying that align is a non-zero power of two. The allocator methods
// themselves trust their callers and never re-validate a Layout.
func NewLayout(size, align uintptr) (Layout, error) {
	if err := memutils.CheckPow2(align, "tcalloc.Layout.Align"); err != nil {
		return Layout{}, err
	}

	return Layout{Size: size, Align: align}, nil
}

// LayoutOf returns the Layout of a single value of type T
func LayoutOf[T any]() Layout {
	var value T
	return Layout{
		Size:  unsafe.Sizeof(value),
		Align: unsafe.Alignof(value),
	}
}

// Sentinel is the handle returned for every zero-size request with this layout's alignment. It is
// derived from the alignment alone, so it can be recognized again without any stored state.
func (l Layout) Sentinel() Handle {
	return Handle(max(l.Align, 1))
}

// Handle is the address of an allocation made by a GlobalAllocator. It is deliberately an integer:
// the memory it addresses is not owned by the Go runtime, and a handle's lifetime runs from the
// allocation that produced it to the matching Dealloc, whatever happens to the variables holding it.
//
// The zero Handle is the null handle, returned when an allocation fails.
type Handle uintptr

// IsNull reports whether h is the null handle
func (h Handle) IsNull() bool {
	return h == 0
}

// IsAligned reports whether h is a multiple of align, which must be a power of two
func (h Handle) IsAligned(align uintptr) bool {
	return memutils.IsAligned(uintptr(h), align)
}

// Bytes views the first n bytes of the allocation at h. Zero-size allocations have nothing to view:
// for n == 0 it returns nil without touching h, which makes it safe to call on a sentinel.
func (h Handle) Bytes(n uintptr) []byte {
	if n == 0 || h == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(h.pointer()), n)
}

func (h Handle) pointer() unsafe.Pointer {
	return unsafe.Pointer(h)
}
