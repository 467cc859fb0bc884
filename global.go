package tcalloc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

var (
	// ErrAlreadyInstalled is returned by Install when a process-wide allocator is already installed
	ErrAlreadyInstalled = errors.New("a process-wide allocator is already installed")
	// ErrInstallAfterUse is returned by Install once Global has been called: the allocator that served
	// earlier requests must keep serving them for the life of the process
	ErrInstallAfterUse = errors.New("the process-wide allocator cannot be installed after it has been used")
)

var (
	installMutex sync.Mutex
	installed    atomic.Pointer[globalAllocatorHolder]
	sealed       atomic.Bool
	sealOnce     sync.Once
)

type globalAllocatorHolder struct {
	allocator GlobalAllocator
}

// Install makes allocator the process-wide allocator returned by Global. It must be called before
// the first call to Global, and at most once.
func Install(allocator GlobalAllocator) error {
	if allocator == nil {
		return errors.New("tcalloc.Install received a nil allocator")
	}

	installMutex.Lock()
	defer installMutex.Unlock()

	if sealed.Load() {
		return ErrInstallAfterUse
	}
	if installed.Load() != nil {
		return ErrAlreadyInstalled
	}

	installed.Store(&globalAllocatorHolder{allocator: allocator})
	slog.Default().Debug("tcalloc::Install", slog.String("Allocator", typeName(allocator)))

	return nil
}

// Global returns the process-wide allocator. If none has been installed, the first call builds an
// Allocator over DefaultEngine. Either way the choice is fixed from the first call onward.
//
// Global panics if no allocator was installed and the default engine cannot be created.
func Global() GlobalAllocator {
	if holder := installed.Load(); holder != nil && sealed.Load() {
		return holder.allocator
	}

	sealOnce.Do(seal)

	holder := installed.Load()
	if holder == nil {
		panic(errors.New("tcalloc: the default allocator could not be created"))
	}
	return holder.allocator
}

func seal() {
	installMutex.Lock()
	defer installMutex.Unlock()

	sealed.Store(true)
	if installed.Load() != nil {
		return
	}

	logger := slog.Default()

	eng, err := DefaultEngine()
	if err != nil {
		panic(errors.Wrap(err, "tcalloc: failed to create the default engine"))
	}

	allocator, err := New(logger, eng, CreateOptions{})
	if err != nil {
		panic(errors.Wrap(err, "tcalloc: failed to create the default allocator"))
	}

	installed.Store(&globalAllocatorHolder{allocator: allocator})
	logger.Debug("tcalloc::Global installed default allocator", slog.String("Engine", typeName(eng)))
}

func typeName(value any) string {
	return fmt.Sprintf("%T", value)
}

// Alloc allocates memory for layout from the process-wide allocator
func Alloc(layout Layout) Handle {
	return Global().Alloc(layout)
}

// AllocZeroed allocates zeroed memory for layout from the process-wide allocator
func AllocZeroed(layout Layout) Handle {
	return Global().AllocZeroed(layout)
}

// Dealloc returns memory allocated with layout to the process-wide allocator
func Dealloc(handle Handle, layout Layout) {
	Global().Dealloc(handle, layout)
}

// Realloc resizes memory allocated with layout through the process-wide allocator
func Realloc(handle Handle, layout Layout, newSize uintptr) Handle {
	return Global().Realloc(handle, layout, newSize)
}
