//go:build !cgo || (!tcmalloc && !linux)

package tcalloc

import (
	"github.com/vkngwrapper/tcalloc/engine"
	"github.com/vkngwrapper/tcalloc/engine/tlsf"
	"golang.org/x/exp/slog"
)

// DefaultEngine returns the engine Global uses when no allocator has been installed. Without cgo, or
// without a native engine for the platform, a pure-Go TLSF engine is used.
func DefaultEngine() (engine.Engine, error) {
	eng, err := tlsf.New(slog.Default(), tlsf.CreateOptions{})
	if err != nil {
		return nil, err
	}
	return eng, nil
}
