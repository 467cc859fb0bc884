//go:build cgo && tcmalloc

package tcalloc

import (
	"github.com/vkngwrapper/tcalloc/engine"
	"github.com/vkngwrapper/tcalloc/engine/tcmalloc"
)

// DefaultEngine returns the engine Global uses when no allocator has been installed. Builds with the
// tcmalloc tag use the statically linked tcmalloc.
func DefaultEngine() (engine.Engine, error) {
	return tcmalloc.Engine{}, nil
}
