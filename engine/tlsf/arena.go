package tlsf

import (
	"unsafe"

	"github.com/vkngwrapper/tcalloc/memutils/metadata"
)

// arena is a single anonymous mapping. The metadata knows nothing about addresses: every position
// it hands out is an offset from ptr.
type arena struct {
	mem      []byte
	ptr      unsafe.Pointer
	metadata *metadata.TLSFBlockMetadata
}

func newArena(mem []byte) *arena {
	meta := metadata.NewTLSFBlockMetadata()
	meta.Init(len(mem))

	return &arena{
		mem:      mem,
		ptr:      unsafe.Pointer(&mem[0]),
		metadata: meta,
	}
}

func (a *arena) base() uintptr {
	return uintptr(a.ptr)
}

func (a *arena) size() int {
	return len(a.mem)
}
