package tcalloc

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/tcalloc/engine"
	"github.com/vkngwrapper/tcalloc/internal/utils"
	"github.com/vkngwrapper/tcalloc/memutils"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateDeallocUseSdallocx frees through the engine's Sdallocx primitive instead of FreeSized.
	// Both receive the usable size reported by the engine.
	CreateDeallocUseSdallocx CreateFlags = 1 << iota
)

var createFlagsMapping = map[CreateFlags]string{
	CreateDeallocUseSdallocx: "CreateDeallocUseSdallocx",
}

func (f CreateFlags) String() string {
	return utils.FlagsString(f, createFlagsMapping)
}

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
}

// New creates a new Allocator
//
// logger - Receives debug output from the allocator's slow paths. slog.Default() is used if nil.
//
// eng - The engine that performs all memory management. Its default alignment is read once here.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, eng engine.Engine, options CreateOptions) (*Allocator, error) {
	if eng == nil {
		return nil, errors.New("tcalloc.New received a nil engine")
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaultAlignment := eng.DefaultAlignment()
	if err := memutils.CheckPow2(defaultAlignment, "engine default alignment"); err != nil {
		return nil, err
	}

	allocator := &Allocator{
		logger:           logger,
		engine:           eng,
		defaultAlignment: defaultAlignment,
		useSdallocx:      options.Flags&CreateDeallocUseSdallocx != 0,
	}

	logger.Debug("Allocator::New",
		slog.Uint64("DefaultAlignment", uint64(defaultAlignment)),
		slog.String("Flags", options.Flags.String()),
	)

	return allocator, nil
}
