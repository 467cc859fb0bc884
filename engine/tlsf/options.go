package tlsf

import (
	"github.com/vkngwrapper/tcalloc/internal/utils"
	"github.com/vkngwrapper/tcalloc/memutils/metadata"
)

// CreateFlags indicate specific engine behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateExternallySynchronized ensures that the engine will not be synchronized internally. The
	// consumer must guarantee it is used from only one goroutine at a time or is synchronized by some
	// other mechanism, but performance may improve because the internal mutex is not used.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

var createFlagsMapping = map[CreateFlags]string{
	CreateExternallySynchronized: "CreateExternallySynchronized",
}

func (f CreateFlags) String() string {
	return utils.FlagsString(f, createFlagsMapping)
}

const (
	// DefaultArenaSize is the arena size used when CreateOptions.ArenaSize is zero
	DefaultArenaSize int = 4 * 1024 * 1024
	// DefaultMinAlignment is the alignment used when CreateOptions.MinAlignment is zero
	DefaultMinAlignment uint = 16
)

// CreateOptions contains optional settings when creating an engine. It is valid to leave all the
// fields blank.
type CreateOptions struct {
	// Flags indicates specific engine behaviors to activate or deactivate
	Flags CreateFlags
	// ArenaSize is the size in bytes of each memory mapping the engine carves allocations from. It is
	// rounded up to the page size. Allocations too large for an arena receive a dedicated arena.
	ArenaSize int
	// MaxArenas caps the number of arenas that may be mapped at once. Allocations that would need
	// another arena fail as out of memory. Zero means no limit.
	MaxArenas int
	// MinAlignment is the alignment every allocation receives, and the granularity of the smallest
	// size classes. It must be a power of two no larger than the page size.
	MinAlignment uint
	// Strategy selects how free regions are chosen within an arena
	Strategy metadata.AllocationStrategy
}
