//go:build cgo && !tcmalloc && linux

package tcalloc

import (
	"github.com/vkngwrapper/tcalloc/engine"
	"github.com/vkngwrapper/tcalloc/engine/libc"
)

// DefaultEngine returns the engine Global uses when no allocator has been installed. cgo builds on
// linux without the tcmalloc tag use the C library's malloc.
func DefaultEngine() (engine.Engine, error) {
	return libc.Engine{}, nil
}
