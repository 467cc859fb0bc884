//go:build cgo && tcmalloc

// Package tcmalloc binds the internal entry points of a statically linked tcmalloc. The archive
// libtcmalloc_fat.a must be placed in this directory before building with the tcmalloc tag.
package tcmalloc

/*
#cgo LDFLAGS: -L${SRCDIR} -ltcmalloc_fat -lpthread -ldl
#cgo linux LDFLAGS: -lstdc++
#cgo darwin LDFLAGS: -lc++
#include <stddef.h>

void *TCMallocInternalMalloc(size_t size);
void *TCMallocInternalCalloc(size_t num, size_t size);
void *TCMallocInternalRealloc(void *ptr, size_t size);
void TCMallocInternalFree(void *ptr);
void *TCMallocInternalMemalign(size_t alignment, size_t size);
void TCMallocInternalSdallocx(void *ptr, size_t size, int flags);
void TCMallocInternalFreeSized(void *ptr, size_t size);
size_t TCMallocInternalMallocSize(void *ptr);
*/
import "C"

import (
	"unsafe"

	"github.com/vkngwrapper/tcalloc/engine"
)

// DefaultAlignment is the alignment tcmalloc guarantees without an explicit Memalign
const DefaultAlignment uintptr = 16

// Engine forwards every primitive to tcmalloc. It has no state; the zero value is ready to use.
type Engine struct{}

var _ engine.Engine = Engine{}

func (Engine) Malloc(size uintptr) unsafe.Pointer {
	return C.TCMallocInternalMalloc(C.size_t(size))
}

func (Engine) Calloc(count, size uintptr) unsafe.Pointer {
	return C.TCMallocInternalCalloc(C.size_t(count), C.size_t(size))
}

func (Engine) Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	return C.TCMallocInternalRealloc(ptr, C.size_t(size))
}

func (Engine) Free(ptr unsafe.Pointer) {
	C.TCMallocInternalFree(ptr)
}

func (Engine) Memalign(alignment, size uintptr) unsafe.Pointer {
	return C.TCMallocInternalMemalign(C.size_t(alignment), C.size_t(size))
}

func (Engine) Sdallocx(ptr unsafe.Pointer, size uintptr, flags int) {
	C.TCMallocInternalSdallocx(ptr, C.size_t(size), C.int(flags))
}

func (Engine) FreeSized(ptr unsafe.Pointer, size uintptr) {
	C.TCMallocInternalFreeSized(ptr, C.size_t(size))
}

func (Engine) UsableSize(ptr unsafe.Pointer) uintptr {
	return uintptr(C.TCMallocInternalMallocSize(ptr))
}

func (Engine) DefaultAlignment() uintptr {
	return DefaultAlignment
}
