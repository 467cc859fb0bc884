// Package tcalloc adapts a malloc-family engine to the allocate / allocate-zeroed / deallocate /
// resize contract of a process-wide allocator.
//
// The adapter owns no state beyond its configuration. It resolves three mismatches between its
// callers and the engine: zero-size requests are answered with a sentinel handle derived from the
// alignment, alignments above the engine's default go through the engine's aligned entry point, and
// every free is sized with the usable size the engine reports rather than the size the caller asked
// for.
package tcalloc

import (
	"github.com/vkngwrapper/tcalloc/engine"
	"github.com/vkngwrapper/tcalloc/memutils"
	"golang.org/x/exp/slog"
)

// GlobalAllocator is the contract of a process-wide allocator. Allocation failure is reported as the
// null handle. Dealloc and Realloc must receive the Layout the handle was allocated with.
type GlobalAllocator interface {
	Alloc(layout Layout) Handle
	AllocZeroed(layout Layout) Handle
	Dealloc(handle Handle, layout Layout)
	Realloc(handle Handle, layout Layout, newSize uintptr) Handle
}

// Allocator is a GlobalAllocator that forwards every request to an engine.Engine. It is safe for
// concurrent use whenever its engine is.
type Allocator struct {
	logger           *slog.Logger
	engine           engine.Engine
	defaultAlignment uintptr
	useSdallocx      bool
}

var _ GlobalAllocator = &Allocator{}

// Engine returns the engine this allocator forwards to
func (a *Allocator) Engine() engine.Engine {
	return a.engine
}

// DefaultAlignment returns the largest alignment served by the engine's plain entry points. Layouts
// with a larger alignment are allocated through Memalign.
func (a *Allocator) DefaultAlignment() uintptr {
	return a.defaultAlignment
}

func (a *Allocator) overAligned(layout Layout) bool {
	memutils.DebugCheckPow2(layout.Align, "tcalloc.Layout.Align")
	return layout.Align > a.defaultAlignment
}

// Alloc allocates memory for layout. Zero-size layouts receive layout.Sentinel() without reaching the
// engine. The null handle is returned when the engine is out of memory.
func (a *Allocator) Alloc(layout Layout) Handle {
	if layout.Size == 0 {
		return layout.Sentinel()
	}

	var handle Handle
	if a.overAligned(layout) {
		handle = Handle(a.engine.Memalign(layout.Align, layout.Size))
	} else {
		handle = Handle(a.engine.Malloc(layout.Size))
	}

	if handle == 0 {
		a.logOutOfMemory("Allocator::Alloc", layout)
	}
	return handle
}

// AllocZeroed behaves like Alloc, but the first layout.Size bytes of the allocation are zero
func (a *Allocator) AllocZeroed(layout Layout) Handle {
	if layout.Size == 0 {
		return layout.Sentinel()
	}

	var handle Handle
	if !a.overAligned(layout) {
		handle = Handle(a.engine.Calloc(1, layout.Size))
	} else if handle = Handle(a.engine.Memalign(layout.Align, layout.Size)); handle != 0 {
		// Memalign has no zeroing counterpart
		clear(handle.Bytes(layout.Size))
	}

	if handle == 0 {
		a.logOutOfMemory("Allocator::AllocZeroed", layout)
	}
	return handle
}

// Dealloc releases the allocation at handle. The engine's usable size for the handle is queried and
// passed to the sized free, since the engine may have rounded the request up to a larger size class.
func (a *Allocator) Dealloc(handle Handle, layout Layout) {
	if layout.Size == 0 {
		memutils.DebugAssert(handle == layout.Sentinel(), "tcalloc: zero-size deallocation received a handle that is not the sentinel for its alignment")
		return
	}

	ptr := handle.pointer()
	usable := a.engine.UsableSize(ptr)

	if a.useSdallocx {
		a.engine.Sdallocx(ptr, usable, 0)
		return
	}
	a.engine.FreeSized(ptr, usable)
}

// Realloc resizes the allocation at handle to newSize bytes, preserving its first
// min(layout.Size, newSize) bytes and layout.Align. The returned handle replaces handle, which must
// not be used again unless the null handle is returned: on failure handle remains valid and unchanged.
func (a *Allocator) Realloc(handle Handle, layout Layout, newSize uintptr) Handle {
	newLayout := Layout{Size: newSize, Align: layout.Align}

	if layout.Size == 0 {
		memutils.DebugAssert(handle == layout.Sentinel(), "tcalloc: resize of a zero-size allocation received a handle that is not the sentinel for its alignment")
		return a.Alloc(newLayout)
	}

	if newSize == 0 {
		a.Dealloc(handle, layout)
		return newLayout.Sentinel()
	}

	if !a.overAligned(layout) {
		return Handle(a.engine.Realloc(handle.pointer(), newSize))
	}

	// The engine's resize only preserves its default alignment, so over-aligned blocks are moved by hand
	newHandle := a.Alloc(newLayout)
	if newHandle == 0 {
		return 0
	}

	copySize := min(layout.Size, newSize)
	copy(newHandle.Bytes(copySize), handle.Bytes(copySize))
	a.Dealloc(handle, layout)

	a.logger.Debug("Allocator::Realloc relocated over-aligned allocation",
		slog.Uint64("Size", uint64(layout.Size)),
		slog.Uint64("NewSize", uint64(newSize)),
		slog.Uint64("Align", uint64(layout.Align)),
	)

	return newHandle
}

func (a *Allocator) logOutOfMemory(operation string, layout Layout) {
	a.logger.Debug(operation+" FAILED: engine out of memory",
		slog.Uint64("Size", uint64(layout.Size)),
		slog.Uint64("Align", uint64(layout.Align)),
	)
}
