// Package engine describes the primitive entry points of a malloc-family allocator. Implementations
// live in the subpackages: tcmalloc and libc bind native allocators through cgo, and tlsf is a
// pure-Go heap over anonymous memory mappings.
//
// Every method follows C semantics. A nil return from an allocating method means the engine is out of
// memory. None of the methods return errors, and misuse (freeing a pointer twice, passing a pointer
// the engine did not hand out) is undefined; engines may abort the process.
package engine

//go:generate mockgen -source=engine.go -destination=mocks/engine.go -package=mocks

import "unsafe"

// Engine is the capability set of a malloc-family allocator. Implementations must be safe for
// concurrent use, and a Free on one goroutine must be visible to allocations made afterward on any
// other goroutine.
type Engine interface {
	// Malloc allocates size bytes aligned to DefaultAlignment
	Malloc(size uintptr) unsafe.Pointer
	// Calloc allocates count*size zero-filled bytes aligned to DefaultAlignment
	Calloc(count, size uintptr) unsafe.Pointer
	// Realloc resizes the allocation at ptr to size bytes, moving it if necessary. The contents are
	// preserved up to the smaller of the old and new sizes. The result is only guaranteed to be
	// aligned to DefaultAlignment. On failure nil is returned and ptr remains valid.
	Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer
	// Free releases the allocation at ptr
	Free(ptr unsafe.Pointer)
	// Memalign allocates size bytes aligned to alignment, which must be a power of two
	Memalign(alignment, size uintptr) unsafe.Pointer
	// Sdallocx releases the allocation at ptr. size must be the value UsableSize reports for ptr.
	Sdallocx(ptr unsafe.Pointer, size uintptr, flags int)
	// FreeSized releases the allocation at ptr. size must be the value UsableSize reports for ptr.
	FreeSized(ptr unsafe.Pointer, size uintptr)
	// UsableSize reports the number of bytes actually backing the allocation at ptr, which is never
	// less than the size that was requested for it
	UsableSize(ptr unsafe.Pointer) uintptr
	// DefaultAlignment is the alignment every allocation is guaranteed to have
	DefaultAlignment() uintptr
}
