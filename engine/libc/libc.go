//go:build cgo && linux

// Package libc binds the platform C allocator. glibc does not check the size handed to a sized free,
// so the sized primitives release through free once the size has been accepted.
package libc

/*
#include <stdlib.h>
#include <malloc.h>

static void *tcalloc_memalign(size_t alignment, size_t size) {
	void *ptr = NULL;
	if (alignment < sizeof(void *)) {
		alignment = sizeof(void *);
	}
	if (posix_memalign(&ptr, alignment, size) != 0) {
		return NULL;
	}
	return ptr;
}
*/
import "C"

import (
	"unsafe"

	"github.com/vkngwrapper/tcalloc/engine"
)

// DefaultAlignment is the alignment malloc guarantees on every supported platform: two machine words
const DefaultAlignment = 2 * unsafe.Sizeof(uintptr(0))

// Engine forwards every primitive to the C library. It has no state; the zero value is ready to use.
type Engine struct{}

var _ engine.Engine = Engine{}

func (Engine) Malloc(size uintptr) unsafe.Pointer {
	return C.malloc(C.size_t(size))
}

func (Engine) Calloc(count, size uintptr) unsafe.Pointer {
	return C.calloc(C.size_t(count), C.size_t(size))
}

func (Engine) Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	return C.realloc(ptr, C.size_t(size))
}

func (Engine) Free(ptr unsafe.Pointer) {
	C.free(ptr)
}

func (Engine) Memalign(alignment, size uintptr) unsafe.Pointer {
	return C.tcalloc_memalign(C.size_t(alignment), C.size_t(size))
}

func (Engine) Sdallocx(ptr unsafe.Pointer, size uintptr, flags int) {
	C.free(ptr)
}

func (Engine) FreeSized(ptr unsafe.Pointer, size uintptr) {
	C.free(ptr)
}

func (Engine) UsableSize(ptr unsafe.Pointer) uintptr {
	return uintptr(C.malloc_usable_size(ptr))
}

func (Engine) DefaultAlignment() uintptr {
	return DefaultAlignment
}
